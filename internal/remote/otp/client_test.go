package otp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vblancom/tullave-services/internal/remote"
	"github.com/vblancom/tullave-services/internal/remote/otp"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"4.6,-74.0", false},
		{"-90,180", false},
		{" 4.6 , -74.0 ", false},
		{"91,0", true},
		{"-91,0", true},
		{"0,200", true},
		{"0,-181", true},
		{"4.6", true},
		{"a,b", true},
		{"", true},
	}

	for _, tt := range tests {
		_, err := otp.ParseCoordinate(tt.in)
		if tt.wantErr {
			var invalid *remote.InvalidInputError
			require.ErrorAs(t, err, &invalid, "input %q", tt.in)
		} else {
			require.NoError(t, err, "input %q", tt.in)
		}
	}
}

func TestMillis_DecodesEpochMilliseconds(t *testing.T) {
	var m otp.Millis
	require.NoError(t, json.Unmarshal([]byte(`1700000000000`), &m))
	require.Equal(t, int64(1700000000), m.Unix())
}

func TestPlanTrip_BuildsQueryAndDecodesDates(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{
			"plan": {
				"date": 1700000000000,
				"from": {"name": "Origin", "lat": 4.6289, "lon": -74.0628},
				"to": {"name": "Destination", "lat": 4.6975, "lon": -74.0538},
				"itineraries": [{
					"duration": 1800,
					"startTime": 1700000000000,
					"endTime": 1700001800000,
					"walkDistance": 350.5,
					"legs": [{
						"startTime": 1700000000000,
						"endTime": 1700001800000,
						"duration": 1800,
						"distance": 8000,
						"mode": "BUS",
						"routeShortName": "M86",
						"from": {"lat": 4.6289, "lon": -74.0628},
						"to": {"lat": 4.6975, "lon": -74.0538},
						"legGeometry": {"points": "abc123"}
					}],
					"fare": {"fare": {"regular": {"cents": 295000}}}
				}]
			}
		}`))
	}))
	defer srv.Close()

	c := otp.NewClient(srv.URL, 5*time.Second)

	when := time.Date(2026, 8, 30, 15, 4, 0, 0, time.UTC)
	plan, err := c.PlanTrip(context.Background(), "4.6289,-74.0628", "4.6975,-74.0538", when)
	require.NoError(t, err)

	require.Equal(t, "4.6289,-74.0628", gotQuery["fromPlace"])
	require.Equal(t, "4.6975,-74.0538", gotQuery["toPlace"])
	require.Equal(t, "08/30/2026", gotQuery["date"])
	require.Equal(t, "15:04", gotQuery["time"])
	require.Equal(t, otp.DefaultModes, gotQuery["mode"])

	require.Equal(t, int64(1700000000), plan.Plan.Date.Unix())
	require.Len(t, plan.Plan.Itineraries, 1)

	it := plan.Plan.Itineraries[0]
	require.Equal(t, 1800, it.Duration)
	require.Equal(t, int64(1700001800), it.EndTime.Unix())
	require.Equal(t, "M86", it.Legs[0].RouteShort)
	require.Equal(t, "abc123", it.Legs[0].Geometry.Points)
	require.Equal(t, 295000, it.Fare.Fare.Regular.Cents)
}

func TestPlanTrip_RejectsBadCoordinatesWithoutNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := otp.NewClient(srv.URL, 5*time.Second)

	_, err := c.PlanTrip(context.Background(), "91,0", "4.6,-74.0", time.Now())
	var invalid *remote.InvalidInputError
	require.ErrorAs(t, err, &invalid)

	_, err = c.PlanTrip(context.Background(), "4.6,-74.0", "0,200", time.Now())
	require.ErrorAs(t, err, &invalid)

	require.Zero(t, calls)
}

func TestPlanTrip_PlannerErrorBodyPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"plan": {"date": 0, "from": {"lat":0,"lon":0}, "to": {"lat":0,"lon":0}, "itineraries": []}, "error": {"id": 404, "msg": "no transit times available"}}`))
	}))
	defer srv.Close()

	c := otp.NewClient(srv.URL, 5*time.Second)

	plan, err := c.PlanTrip(context.Background(), "4.6,-74.0", "4.7,-74.1", time.Now())
	require.NoError(t, err)
	require.NotNil(t, plan.Error)
	require.Equal(t, 404, plan.Error.ID)
	require.Equal(t, "no transit times available", plan.Error.Msg)
}
