// Package service carries the card registration state machine and the
// operations the HTTP layer exposes. State is an explicit snapshot with
// subscribe/notify; no reactive framework is involved.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
	"github.com/vblancom/tullave-services/internal/cardsvc/store"
	"github.com/vblancom/tullave-services/internal/remote/tullave"
)

// CardAPI is the slice of the Tullave client the service needs.
type CardAPI interface {
	Validity(ctx context.Context, serial string) (tullave.CardStatus, error)
	Information(ctx context.Context, serial string) (tullave.CardInformation, error)
	Balance(ctx context.Context, serial string) (tullave.CardBalance, error)
}

// EventPublisher receives card lifecycle events; the NATS broker implements
// it. A nil publisher is fine.
type EventPublisher interface {
	PublishCardEvent(event, serial string)
}

// Phase is where a registration attempt currently is.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseValidating   Phase = "validating"
	PhaseRemoteLookup Phase = "remote_lookup"
	PhaseSuccess      Phase = "success"
	PhaseFailed       Phase = "failed"
)

// State is the observable snapshot of the card view. ActiveCard mirrors the
// repository's active card; Message is the last human-readable outcome.
type State struct {
	Phase      Phase        `json:"phase"`
	ActiveCard *models.Card `json:"active_card,omitempty"`
	Message    string       `json:"message,omitempty"`
	IsLoading  bool         `json:"is_loading"`
}

var (
	// ErrEmptySerial rejects input that has no digits left after
	// normalization. No network call is made.
	ErrEmptySerial = errors.New("card serial must contain at least one digit")
	// ErrRegistrationInFlight rejects a registration while another one is
	// still loading.
	ErrRegistrationInFlight = errors.New("a registration is already in progress")
)

// CardService orchestrates duplicate detection, remote validation,
// persistence and active-card selection. Registrations are serialized: one
// in flight at a time.
type CardService struct {
	repo      store.CardRepository
	api       CardAPI
	publisher EventPublisher

	mu    sync.Mutex
	state State
	subs  map[chan State]struct{}
}

func NewCardService(repo store.CardRepository, api CardAPI) *CardService {
	return &CardService{
		repo:  repo,
		api:   api,
		state: State{Phase: PhaseIdle},
		subs:  make(map[chan State]struct{}),
	}
}

// SetPublisher wires the event publisher. Call before serving traffic.
func (s *CardService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// State returns the current snapshot.
func (s *CardService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers for state snapshots. The returned cancel func
// unsubscribes.
func (s *CardService) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// Reload refreshes the active-card snapshot from the repository.
func (s *CardService) Reload(ctx context.Context) error {
	active, err := s.activeOrNil(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.ActiveCard = active
	snapshot := s.state
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Register runs one registration attempt for rawSerial:
// normalize, duplicate short-circuit, remote lookup, persist as active.
// The loading flag is set before the first blocking step and cleared on
// every exit path.
func (s *CardService) Register(ctx context.Context, rawSerial string) (State, error) {
	serial := NormalizeSerial(rawSerial)

	s.mu.Lock()
	if s.state.IsLoading {
		s.mu.Unlock()
		return State{}, ErrRegistrationInFlight
	}
	s.state.IsLoading = true
	s.state.Phase = PhaseValidating
	s.state.Message = ""
	snapshot := s.state
	s.mu.Unlock()
	s.notify(snapshot)

	if serial == "" {
		return s.finish(ctx, PhaseFailed, ErrEmptySerial.Error()), ErrEmptySerial
	}

	// Duplicate check against the stored cards. A hit selects the
	// existing record and skips the remote lookup entirely.
	existing, err := s.repo.Get(ctx, serial)
	switch {
	case err == nil:
		if err := s.repo.SetActive(ctx, existing.Serial); err != nil {
			return s.finish(ctx, PhaseFailed, err.Error()), err
		}
		s.publish("card.selected", existing.Serial)
		msg := fmt.Sprintf("card %s was already registered, now selected", serial)
		return s.finish(ctx, PhaseSuccess, msg), nil
	case !errors.Is(err, store.ErrNotFound):
		return s.finish(ctx, PhaseFailed, err.Error()), err
	}

	s.transition(PhaseRemoteLookup)

	info, err := s.api.Information(ctx, serial)
	if err != nil {
		// The repository is untouched; the snapshot reloads whatever
		// card was active before the attempt.
		log.Warnf("card lookup failed for serial %s: %v", serial, err)
		return s.finish(ctx, PhaseFailed, err.Error()), err
	}

	card := models.Card{
		Serial:         info.CardNumber,
		FullName:       info.HolderName(),
		Profile:        info.Profile,
		IsActive:       true,
		RegisteredDate: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, card); err != nil {
		return s.finish(ctx, PhaseFailed, err.Error()), err
	}

	s.publish("card.registered", card.Serial)
	msg := fmt.Sprintf("card %s registered and selected", info.CardNumber)
	return s.finish(ctx, PhaseSuccess, msg), nil
}

// Select makes the card with the given serial the active one.
func (s *CardService) Select(ctx context.Context, serial string) error {
	serial = NormalizeSerial(serial)
	if serial == "" {
		return ErrEmptySerial
	}

	if err := s.repo.SetActive(ctx, serial); err != nil {
		return err
	}
	s.publish("card.selected", serial)
	return s.Reload(ctx)
}

// Delete removes a registered card. Deleting the active card clears the
// active reference.
func (s *CardService) Delete(ctx context.Context, serial string) error {
	serial = NormalizeSerial(serial)
	if serial == "" {
		return ErrEmptySerial
	}

	if err := s.repo.Delete(ctx, serial); err != nil {
		return err
	}
	s.publish("card.deleted", serial)
	return s.Reload(ctx)
}

// List returns all registered cards, newest first.
func (s *CardService) List(ctx context.Context) ([]models.Card, error) {
	return s.repo.List(ctx)
}

// ActiveCard returns the active card, or store.ErrNotFound.
func (s *CardService) ActiveCard(ctx context.Context) (models.Card, error) {
	return s.repo.GetActive(ctx)
}

// Validity checks a serial against the remote card validity endpoint.
func (s *CardService) Validity(ctx context.Context, serial string) (tullave.CardStatus, error) {
	serial = NormalizeSerial(serial)
	if serial == "" {
		return tullave.CardStatus{}, ErrEmptySerial
	}
	return s.api.Validity(ctx, serial)
}

// RefreshBalance fetches the current balance for a registered card and
// returns the card with the balance attached. Balance is never persisted.
func (s *CardService) RefreshBalance(ctx context.Context, serial string) (models.Card, error) {
	serial = NormalizeSerial(serial)
	if serial == "" {
		return models.Card{}, ErrEmptySerial
	}

	card, err := s.repo.Get(ctx, serial)
	if err != nil {
		return models.Card{}, err
	}

	balance, err := s.api.Balance(ctx, serial)
	if err != nil {
		return models.Card{}, err
	}

	amount := balance.Amount()
	card.Balance = &amount
	return card, nil
}

// NormalizeSerial strips every non-digit character from raw.
func NormalizeSerial(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// finish records the terminal state of an attempt, reloads the active-card
// snapshot from the repository and clears the loading flag.
func (s *CardService) finish(ctx context.Context, phase Phase, message string) State {
	active, err := s.activeOrNil(ctx)
	if err != nil {
		log.Errorf("failed to reload active card: %v", err)
	}

	s.mu.Lock()
	s.state.Phase = phase
	s.state.Message = message
	s.state.ActiveCard = active
	s.state.IsLoading = false
	snapshot := s.state
	s.mu.Unlock()

	s.notify(snapshot)
	return snapshot
}

func (s *CardService) transition(phase Phase) {
	s.mu.Lock()
	s.state.Phase = phase
	snapshot := s.state
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *CardService) activeOrNil(ctx context.Context) (*models.Card, error) {
	active, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &active, nil
}

func (s *CardService) notify(snapshot State) {
	s.mu.Lock()
	subs := make([]chan State, 0, len(s.subs))
	for ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default: // drop for slow subscribers rather than stall the flow
		}
	}
}

func (s *CardService) publish(event, serial string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishCardEvent(event, serial)
}
