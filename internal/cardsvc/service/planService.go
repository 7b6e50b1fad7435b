package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
	"github.com/vblancom/tullave-services/internal/location"
	"github.com/vblancom/tullave-services/internal/remote"
	"github.com/vblancom/tullave-services/internal/remote/otp"
)

// ErrNoLocation is returned when a nearby-stops query needs the device
// location and none has ever been reported.
var ErrNoLocation = errors.New("no device location reported yet")

// PlannerAPI is the slice of the OTP client the service needs.
type PlannerAPI interface {
	PlanTrip(ctx context.Context, from, to string, when time.Time) (otp.TripPlan, error)
}

// TripHistory records planned trips. A nil history disables recording.
type TripHistory interface {
	Save(ctx context.Context, rec models.TripRecord) error
	Recent(ctx context.Context, limit int64) ([]models.TripRecord, error)
}

// PlanService glues trip planning, the planned-trip history, the stop index
// and the device location feed together.
type PlanService struct {
	planner    PlannerAPI
	history    TripHistory
	stops      *location.StopIndex
	locations  *location.Provider
	historyTTL time.Duration
}

func NewPlanService(planner PlannerAPI, history TripHistory, stops *location.StopIndex, locations *location.Provider, historyTTL time.Duration) *PlanService {
	if historyTTL <= 0 {
		historyTTL = 24 * time.Hour
	}
	return &PlanService{
		planner:    planner,
		history:    history,
		stops:      stops,
		locations:  locations,
		historyTTL: historyTTL,
	}
}

// Plan asks the planner for itineraries and records the attempt in the
// history. History failures are logged, they never fail the plan.
func (s *PlanService) Plan(ctx context.Context, from, to string, when time.Time) (otp.TripPlan, error) {
	plan, err := s.planner.PlanTrip(ctx, from, to, when)
	if err != nil {
		return otp.TripPlan{}, err
	}

	if s.history != nil {
		rec := models.NewTripRecord(uuid.New().String(), from, to, plan, s.historyTTL)
		if err := s.history.Save(ctx, rec); err != nil {
			log.Warnf("failed to record planned trip: %v", err)
		}
	}

	return plan, nil
}

// History lists the most recent planned trips.
func (s *PlanService) History(ctx context.Context, limit int64) ([]models.TripRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, limit)
}

// NearbyStops returns the stops within radius meters of a "lat,lon" point.
func (s *PlanService) NearbyStops(coord string, radius float64) ([]location.StopWithDistance, error) {
	point, err := otp.ParseCoordinate(coord)
	if err != nil {
		return nil, err
	}
	return s.stops.FindNearby(point.Lat, point.Lon, radius), nil
}

// NearbyStopsAtDevice runs the nearby search at the latest reported device
// location.
func (s *PlanService) NearbyStopsAtDevice(radius float64) ([]location.StopWithDistance, error) {
	fix, ok := s.locations.Latest()
	if !ok {
		return nil, ErrNoLocation
	}
	return s.stops.FindNearby(fix.Lat, fix.Lon, radius), nil
}

// ReportLocation feeds a device fix into the provider. Out-of-range
// coordinates are rejected before they reach the feed.
func (s *PlanService) ReportLocation(lat, lon float64) (bool, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false, &remote.InvalidInputError{Field: "location", Reason: "coordinates out of range"}
	}
	return s.locations.Report(lat, lon), nil
}

// LatestLocation returns the most recent device fix, if any.
func (s *PlanService) LatestLocation() (location.Fix, bool) {
	return s.locations.Latest()
}
