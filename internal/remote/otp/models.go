package otp

import (
	"encoding/json"
	"time"
)

// Millis decodes the planner's millisecond-epoch timestamps into time.Time.
type Millis struct {
	time.Time
}

func (m *Millis) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	m.Time = time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
	return nil
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Time.UnixMilli())
}

// TripPlan is the top-level /plan response. The planner reports its own
// failures inside the body, not via HTTP status.
type TripPlan struct {
	Plan  Plan       `json:"plan"`
	Error *PlanError `json:"error,omitempty"`
}

type PlanError struct {
	ID  int    `json:"id"`
	Msg string `json:"msg"`
}

type Plan struct {
	Date        Millis      `json:"date"`
	From        Place       `json:"from"`
	To          Place       `json:"to"`
	Itineraries []Itinerary `json:"itineraries"`
}

// Place is a named point on the plan, a stop or a bare coordinate.
type Place struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Itinerary is one complete proposed trip composed of ordered legs. These
// are transient view models rebuilt on every planning request.
type Itinerary struct {
	Duration     int     `json:"duration"`
	StartTime    Millis  `json:"startTime"`
	EndTime      Millis  `json:"endTime"`
	WalkDistance float64 `json:"walkDistance"`
	Legs         []Leg   `json:"legs"`
	Fare         *Fare   `json:"fare,omitempty"`
}

type Fare struct {
	Fare FareDetails `json:"fare"`
}

type FareDetails struct {
	Regular *RegularFare `json:"regular,omitempty"`
}

type RegularFare struct {
	Cents int `json:"cents"`
}

// Leg is one continuous segment of an itinerary in a single transport mode.
type Leg struct {
	StartTime     Millis      `json:"startTime"`
	EndTime       Millis      `json:"endTime"`
	Duration      int         `json:"duration"`
	Distance      float64     `json:"distance"`
	Mode          string      `json:"mode"`
	Route         string      `json:"route,omitempty"`
	RouteID       string      `json:"routeId,omitempty"`
	RouteShort    string      `json:"routeShortName,omitempty"`
	RouteLong     string      `json:"routeLongName,omitempty"`
	AgencyName    string      `json:"agencyName,omitempty"`
	AgencyURL     string      `json:"agencyUrl,omitempty"`
	RouteColor    string      `json:"routeColor,omitempty"`
	RouteType     int         `json:"routeType,omitempty"`
	From          Place       `json:"from"`
	To            Place       `json:"to"`
	Geometry      LegGeometry `json:"legGeometry"`
}

// LegGeometry carries the encoded polyline of the leg on the map.
type LegGeometry struct {
	Points string `json:"points"`
}
