// Package otp is the client for an OpenTripPlanner-compatible routing API.
// It validates coordinates, issues the /plan query and decodes the
// millisecond-epoch timestamps the planner uses. No route computation
// happens here, the response is passed through.
package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vblancom/tullave-services/internal/remote"
)

// DefaultModes is the transport mode set the mobile client plans with.
const DefaultModes = "TRANSIT,WALK,BUS"

const defaultTimeout = 20 * time.Second

type Client struct {
	base  string
	modes string
	http  *http.Client
}

// NewClient builds a planner client for base, something like
// "https://sisuotp.tullaveplus.gov.co/otp/routers/default".
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		modes: DefaultModes,
		http:  &http.Client{Timeout: timeout},
	}
}

// PlanTrip asks the planner for itineraries between two "lat,lon" strings
// at the given departure time. Both coordinates are validated before any
// network call.
func (c *Client) PlanTrip(ctx context.Context, from, to string, when time.Time) (TripPlan, error) {
	origin, err := ParseCoordinate(from)
	if err != nil {
		return TripPlan{}, err
	}
	destination, err := ParseCoordinate(to)
	if err != nil {
		return TripPlan{}, err
	}

	target, err := url.Parse(c.base + "/plan")
	if err != nil {
		return TripPlan{}, fmt.Errorf("%w: %v", remote.ErrInvalidRequest, err)
	}

	q := target.Query()
	q.Set("fromPlace", origin.String())
	q.Set("toPlace", destination.String())
	q.Set("date", when.Format("01/02/2006"))
	q.Set("time", when.Format("15:04"))
	q.Set("mode", c.modes)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return TripPlan{}, fmt.Errorf("%w: %v", remote.ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return TripPlan{}, &remote.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TripPlan{}, &remote.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return TripPlan{}, remote.ErrAuthenticationFailed
		}
		return TripPlan{}, &remote.APIError{
			Message: fmt.Sprintf("request failed with HTTP status %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	var plan TripPlan
	if err := json.Unmarshal(body, &plan); err != nil {
		return TripPlan{}, &remote.DecodeError{Err: err}
	}
	return plan, nil
}
