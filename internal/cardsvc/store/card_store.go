package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
)

// CardStore is the Postgres-backed card repository.
type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) List(ctx context.Context) ([]models.Card, error) {
	query := `
		SELECT serial, full_name, profile, is_active, registered_date
		FROM cards
		ORDER BY registered_date DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.Serial, &c.FullName, &c.Profile, &c.IsActive, &c.RegisteredDate); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}

	return cards, nil
}

func (s *CardStore) GetActive(ctx context.Context) (models.Card, error) {
	query := `
		SELECT serial, full_name, profile, is_active, registered_date
		FROM cards
		WHERE is_active = TRUE
		LIMIT 1
	`

	var c models.Card
	err := s.db.QueryRow(ctx, query).Scan(&c.Serial, &c.FullName, &c.Profile, &c.IsActive, &c.RegisteredDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Card{}, ErrNotFound
		}
		return models.Card{}, fmt.Errorf("failed to get active card: %w", err)
	}

	return c, nil
}

func (s *CardStore) Get(ctx context.Context, serial string) (models.Card, error) {
	query := `
		SELECT serial, full_name, profile, is_active, registered_date
		FROM cards
		WHERE serial = $1
		LIMIT 1
	`

	var c models.Card
	err := s.db.QueryRow(ctx, query, serial).Scan(&c.Serial, &c.FullName, &c.Profile, &c.IsActive, &c.RegisteredDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Card{}, ErrNotFound
		}
		return models.Card{}, fmt.Errorf("failed to get card %s: %w", serial, err)
	}

	return c, nil
}

// Insert adds a card. When the card comes in active, the previous holder
// is cleared inside the same transaction so the invariant never breaks.
func (s *CardStore) Insert(ctx context.Context, card models.Card) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE serial = $1)`, card.Serial).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check serial: %w", err)
	}
	if exists {
		return ErrDuplicate
	}

	if card.IsActive {
		if _, err := tx.Exec(ctx, `UPDATE cards SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
			return fmt.Errorf("failed to deactivate previous card: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cards (serial, full_name, profile, is_active, registered_date)
		VALUES ($1, $2, $3, $4, $5)
	`, card.Serial, card.FullName, card.Profile, card.IsActive, card.RegisteredDate)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}

	return tx.Commit(ctx)
}

// SetActive clears whatever card holds the flag and sets it on serial,
// both writes in one transaction.
func (s *CardStore) SetActive(ctx context.Context, serial string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin set-active: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE cards SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
		return fmt.Errorf("failed to deactivate previous card: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE cards SET is_active = TRUE WHERE serial = $1`, serial)
	if err != nil {
		return fmt.Errorf("failed to activate card %s: %w", serial, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// Delete removes the card. The row carries its own is_active flag, so
// removing the active card clears the active reference in the same
// statement.
func (s *CardStore) Delete(ctx context.Context, serial string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM cards WHERE serial = $1`, serial)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", serial, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
