package models

import (
	"time"

	"github.com/vblancom/tullave-services/internal/remote/otp"
)

// TripRecord is one planned trip kept in the short-lived history. Records
// expire via a TTL index on ExpiresAt.
type TripRecord struct {
	ID          string    `bson:"_id" json:"id"`
	From        string    `bson:"from_place" json:"from_place"`
	To          string    `bson:"to_place" json:"to_place"`
	Itineraries int       `bson:"itineraries" json:"itineraries"`
	PlannerErr  string    `bson:"planner_error,omitempty" json:"planner_error,omitempty"`
	PlannedAt   time.Time `bson:"planned_at" json:"planned_at"`
	ExpiresAt   time.Time `bson:"expires_at" json:"-"`
}

// NewTripRecord summarizes a planner response for the history.
func NewTripRecord(id, from, to string, plan otp.TripPlan, ttl time.Duration) TripRecord {
	rec := TripRecord{
		ID:          id,
		From:        from,
		To:          to,
		Itineraries: len(plan.Plan.Itineraries),
		PlannedAt:   time.Now().UTC(),
	}
	rec.ExpiresAt = rec.PlannedAt.Add(ttl)
	if plan.Error != nil {
		rec.PlannerErr = plan.Error.Msg
	}
	return rec
}
