package otp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vblancom/tullave-services/internal/remote"
)

// Coordinate is a lat,lon pair as the planner consumes it.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lon)
}

// ParseCoordinate validates a "lat,lon" string with lat in [-90, 90] and
// lon in [-180, 180]. A rejected string never reaches the network.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, &remote.InvalidInputError{
			Field:  "coordinate",
			Reason: fmt.Sprintf("%q is not a lat,lon pair", s),
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, &remote.InvalidInputError{
			Field:  "coordinate",
			Reason: fmt.Sprintf("latitude %q is not a number", parts[0]),
		}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, &remote.InvalidInputError{
			Field:  "coordinate",
			Reason: fmt.Sprintf("longitude %q is not a number", parts[1]),
		}
	}

	if lat < -90 || lat > 90 {
		return Coordinate{}, &remote.InvalidInputError{
			Field:  "coordinate",
			Reason: fmt.Sprintf("latitude %g out of range [-90, 90]", lat),
		}
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, &remote.InvalidInputError{
			Field:  "coordinate",
			Reason: fmt.Sprintf("longitude %g out of range [-180, 180]", lon),
		}
	}

	return Coordinate{Lat: lat, Lon: lon}, nil
}
