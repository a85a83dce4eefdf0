package broker

import (
	"encoding/json"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/metrics"
	"github.com/avvvet/arenax-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker publishes arena change notifications to NATS for the socket tier.
type Broker struct {
	Conn    *nats.Conn
	Source  string // instance id of the publishing service
	Subject string
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewBroker(nc *nats.Conn, source string, m *metrics.Metrics) *Broker {
	return &Broker{
		Conn:    nc,
		Source:  source,
		Subject: comm.EventsSubject,
		metrics: m,
		now:     time.Now,
	}
}

// Publish sends event without waiting for delivery. Failures are logged and counted.
func (b *Broker) Publish(event string) {
	msg, err := comm.NewEvent(event, b.Source, b.now())
	if err != nil {
		b.failed(event, err)
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.failed(event, err)
		return
	}

	if err := b.Conn.Publish(b.Subject, payload); err != nil {
		b.failed(event, err)
	}
}

func (b *Broker) failed(event string, err error) {
	log.Warnf("Error publishing %s to topic %s: %s", event, b.Subject, err)
	if b.metrics != nil {
		b.metrics.PublishFailures.Inc()
	}
}
