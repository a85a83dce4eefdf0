package service

import "github.com/avvvet/arenax-services/internal/comm"

// Notifier is the live-update sink. Publish is best effort and must not block
// the caller on delivery.
type Notifier interface {
	Publish(event string)
}

type NopNotifier struct{}

func (NopNotifier) Publish(string) {}

// Notifiers fans one event out to several sinks.
type Notifiers []Notifier

func (ns Notifiers) Publish(event string) {
	for _, n := range ns {
		n.Publish(event)
	}
}

func publishGameAndPlayers(n Notifier) {
	n.Publish(comm.EventGameUpdated)
	n.Publish(comm.EventPlayerUpdated)
}
