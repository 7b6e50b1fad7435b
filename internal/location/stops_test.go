package location_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vblancom/tullave-services/internal/location"
)

func TestFindNearby_SortedByDistanceWithinRadius(t *testing.T) {
	idx := location.NewStopIndex()

	// from Av. 39, Marly is a few hundred meters away; Calle 100 is not
	results := idx.FindNearby(4.6289, -74.0628, 1000)
	require.NotEmpty(t, results)
	require.Equal(t, "TM-AV39", results[0].ID)

	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i-1].DistanceMeters, results[i].DistanceMeters)
		require.LessOrEqual(t, results[i].DistanceMeters, 1000.0)
	}

	for _, r := range results {
		require.NotEqual(t, "TM-CL100", r.ID)
	}
}

func TestFindNearby_DefaultRadius(t *testing.T) {
	idx := location.NewStopIndex()
	withDefault := idx.FindNearby(4.6289, -74.0628, 0)
	withExplicit := idx.FindNearby(4.6289, -74.0628, location.DefaultRadiusMeters)
	require.Equal(t, withExplicit, withDefault)
}

func TestLoadFile_ReplacesStopSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.txt")
	data := "stop_id,stop_name,stop_lat,stop_lon\n" +
		"S1,First,4.60,-74.08\n" +
		"S2,Second,4.61,-74.09\n" +
		"BAD,row,not-a-number,-74.09\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	idx := location.NewStopIndex()
	require.NoError(t, idx.LoadFile(path))
	require.Equal(t, 2, idx.Count())

	results := idx.FindNearby(4.60, -74.08, 5000)
	require.Len(t, results, 2)
	require.Equal(t, "S1", results[0].ID)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Av. 39 to Calle 100 is roughly 7.6 km
	d := location.Haversine(4.6289, -74.0628, 4.6975, -74.0538)
	require.InDelta(t, 7690, d, 200)

	require.Zero(t, location.Haversine(4.6, -74.0, 4.6, -74.0))
}
