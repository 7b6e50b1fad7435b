// Package broker fans card events out over NATS and feeds device location
// reports published by peer services into the location provider.
package broker

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/vblancom/tullave-services/configs"
	"github.com/vblancom/tullave-services/internal/comm"
	"github.com/vblancom/tullave-services/internal/location"
)

// EventsTopic carries card lifecycle events.
const EventsTopic = "card.events"

type Broker struct {
	Conn      *nats.Conn
	Locations *location.Provider
}

func NewBroker(nc *nats.Conn, locations *location.Provider) *Broker {
	return &Broker{Conn: nc, Locations: locations}
}

// PublishCardEvent implements service.EventPublisher. Publish failures are
// logged, a broken broker never fails a registration.
func (b *Broker) PublishCardEvent(event, serial string) {
	msg := comm.CardEvent{
		Event:      event,
		Serial:     serial,
		InstanceId: config.GetInstanceId(),
		Timestamp:  time.Now().UTC(),
	}

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("failed to marshal card event: %v", err)
		return
	}

	if err := b.Conn.Publish(EventsTopic, bytes); err != nil {
		log.Errorf("failed to publish card event to %s: %v", EventsTopic, err)
	}
}

// SubscribeLocationReports feeds fixes published on topic into the location
// provider.
func (b *Broker) SubscribeLocationReports(topic string) (*nats.Subscription, error) {
	return b.Conn.Subscribe(topic, b.handleLocationReport)
}

func (b *Broker) handleLocationReport(msgNat *nats.Msg) {
	report := &comm.LocationReport{}
	if err := json.Unmarshal(msgNat.Data, report); err != nil {
		log.Errorf("invalid location report: %v", err)
		return
	}

	if b.Locations.Report(report.Lat, report.Lon) {
		log.Debugf("device location updated to %f,%f", report.Lat, report.Lon)
	}
}
