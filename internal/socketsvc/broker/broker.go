package broker

import (
	"encoding/json"

	"github.com/avvvet/arenax-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker relays arena events from NATS to the websocket hub.
type Broker struct {
	Conn      *nats.Conn
	Broadcast func(*comm.WSMessage)
}

func NewBroker(conn *nats.Conn, fncBroadcast func(*comm.WSMessage)) *Broker {
	return &Broker{
		Conn:      conn,
		Broadcast: fncBroadcast,
	}
}

// consume arena events, every socket instance gets its own copy
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.HandlePayload(msgNats.Data)
}

// HandlePayload decodes one event envelope and fans it out.
func (b *Broker) HandlePayload(data []byte) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		log.Errorf("Error decoding event %s", err)
		return
	}

	if !comm.IsArenaEvent(message.Type) {
		log.Warnf("Unknown message type %q", message.Type)
		return
	}

	// events go to everyone, never to a single socket
	message.SocketId = ""
	b.Broadcast(message)
}
