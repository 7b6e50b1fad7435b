package location

import (
	"sync"
	"time"
)

// minMovementMeters is how far a new fix must move before it replaces the
// previous one.
const minMovementMeters = 10

// Fix is one device location report.
type Fix struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ReportedAt time.Time `json:"reported_at"`
}

// Provider keeps the latest device-reported location. The value may stay
// absent indefinitely (permission denied on the device); consumers read the
// latest fix or subscribe, they never poll the device.
type Provider struct {
	mu     sync.RWMutex
	latest *Fix
	subs   map[chan Fix]struct{}
}

func NewProvider() *Provider {
	return &Provider{subs: make(map[chan Fix]struct{})}
}

// Report stores a new fix. Fixes within minMovementMeters of the current
// one are dropped, matching the mobile client's jitter filter. Returns
// whether the fix was accepted.
func (p *Provider) Report(lat, lon float64) bool {
	p.mu.Lock()
	if p.latest != nil && Haversine(p.latest.Lat, p.latest.Lon, lat, lon) <= minMovementMeters {
		p.mu.Unlock()
		return false
	}

	fix := Fix{Lat: lat, Lon: lon, ReportedAt: time.Now().UTC()}
	p.latest = &fix

	subs := make([]chan Fix, 0, len(p.subs))
	for ch := range p.subs {
		subs = append(subs, ch)
	}
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- fix:
		default: // slow subscriber, drop rather than block the reporter
		}
	}
	return true
}

// Latest returns the most recent fix, if any has ever been reported.
func (p *Provider) Latest() (Fix, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return Fix{}, false
	}
	return *p.latest, true
}

// Subscribe registers for future fixes. Call the returned cancel func to
// unsubscribe.
func (p *Provider) Subscribe() (<-chan Fix, func()) {
	ch := make(chan Fix, 8)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
	}
	return ch, cancel
}
