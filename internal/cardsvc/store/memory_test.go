package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
	"github.com/vblancom/tullave-services/internal/cardsvc/store"
)

func activeCount(t *testing.T, s store.CardRepository) int {
	t.Helper()
	cards, err := s.List(context.Background())
	require.NoError(t, err)

	count := 0
	for _, c := range cards {
		if c.IsActive {
			count++
		}
	}
	return count
}

func card(serial string, active bool, registered time.Time) models.Card {
	return models.Card{
		Serial:         serial,
		FullName:       "Maria Gomez",
		Profile:        "Adulto",
		IsActive:       active,
		RegisteredDate: registered,
	}
}

func TestInsert_KeepsSingleActive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	require.NoError(t, s.Insert(ctx, card("111", true, now)))
	require.NoError(t, s.Insert(ctx, card("222", true, now.Add(time.Minute))))

	require.Equal(t, 1, activeCount(t, s))

	active, err := s.GetActive(ctx)
	require.NoError(t, err)
	require.Equal(t, "222", active.Serial)
}

func TestInsert_DuplicateSerial(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Insert(ctx, card("111", false, time.Now())))
	require.ErrorIs(t, s.Insert(ctx, card("111", true, time.Now())), store.ErrDuplicate)

	cards, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
}

func TestSetActive_MovesTheFlag(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	require.NoError(t, s.Insert(ctx, card("111", true, now)))
	require.NoError(t, s.Insert(ctx, card("222", false, now.Add(time.Minute))))

	require.NoError(t, s.SetActive(ctx, "222"))
	require.Equal(t, 1, activeCount(t, s))

	active, err := s.GetActive(ctx)
	require.NoError(t, err)
	require.Equal(t, "222", active.Serial)

	first, err := s.Get(ctx, "111")
	require.NoError(t, err)
	require.False(t, first.IsActive)
}

func TestSetActive_UnknownSerial(t *testing.T) {
	s := store.NewMemoryStore()
	require.ErrorIs(t, s.SetActive(context.Background(), "404"), store.ErrNotFound)
}

func TestDelete_ActiveCardClearsReference(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	require.NoError(t, s.Insert(ctx, card("111", true, now)))
	require.NoError(t, s.Insert(ctx, card("222", false, now.Add(time.Minute))))

	require.NoError(t, s.Delete(ctx, "111"))

	_, err := s.GetActive(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, 0, activeCount(t, s))
}

func TestDelete_NonActiveCardLeavesActiveUntouched(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	require.NoError(t, s.Insert(ctx, card("111", true, now)))
	require.NoError(t, s.Insert(ctx, card("222", false, now.Add(time.Minute))))

	require.NoError(t, s.Delete(ctx, "222"))

	active, err := s.GetActive(ctx)
	require.NoError(t, err)
	require.Equal(t, "111", active.Serial)
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	base := time.Now()
	require.NoError(t, s.Insert(ctx, card("111", false, base)))
	require.NoError(t, s.Insert(ctx, card("222", false, base.Add(time.Hour))))
	require.NoError(t, s.Insert(ctx, card("333", false, base.Add(time.Minute))))

	cards, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	require.Equal(t, "222", cards[0].Serial)
	require.Equal(t, "333", cards[1].Serial)
	require.Equal(t, "111", cards[2].Serial)
}
