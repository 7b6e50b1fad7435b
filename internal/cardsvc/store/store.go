// Package store persists registered cards and enforces the single
// active card invariant. Two backends exist: a Postgres store on pgxpool
// and an in-memory store used by tests and as a no-database fallback.
package store

import (
	"context"
	"errors"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
)

var (
	ErrNotFound  = errors.New("card not found")
	ErrDuplicate = errors.New("card already registered")
)

// CardRepository is the storage contract the service layer consumes.
// Implementations must keep at most one card active across Insert,
// SetActive and Delete, each of which is atomic with respect to that
// invariant.
type CardRepository interface {
	// List returns all cards ordered by registered date, newest first.
	List(ctx context.Context) ([]models.Card, error)
	// GetActive returns the single active card, or ErrNotFound.
	GetActive(ctx context.Context) (models.Card, error)
	// Get returns the card with the given serial, or ErrNotFound.
	Get(ctx context.Context, serial string) (models.Card, error)
	// Insert adds a new card. The caller has already checked serial
	// uniqueness; a clash still fails with ErrDuplicate. When
	// card.IsActive is set, the previous active card is deactivated in
	// the same atomic step.
	Insert(ctx context.Context, card models.Card) error
	// SetActive deactivates the current holder and activates serial as
	// one atomic unit.
	SetActive(ctx context.Context, serial string) error
	// Delete removes the card; deleting the active card clears the
	// active reference in the same step.
	Delete(ctx context.Context, serial string) error
}
