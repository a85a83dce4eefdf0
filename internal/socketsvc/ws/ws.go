package ws

import (
	"sync"
	"time"

	"github.com/avvvet/arenax-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// client serialises writes; a gorilla connection allows one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(m *comm.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(m)
}

// Ws tracks dashboard connections and pushes arena events to all of them.
type Ws struct {
	connMap sync.Map // socketId -> *client
	Source  string
	now     func() time.Time
}

func NewWs(source string) *Ws {
	return &Ws{Source: source, now: time.Now}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "ping":
		s.Send(socketId, &comm.WSMessage{Type: "pong", SocketId: socketId})
	default:
		log.Warnf("unknown event received from %s: %s", socketId, message.Type)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn})
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	log.Infof("socket %s removed", socketId)
}

func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Send writes to one socket, dropping it when the write fails.
func (s *Ws) Send(socketId string, m *comm.WSMessage) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return
	}
	if err := c.(*client).write(m); err != nil {
		log.Warnf("write to socket %s failed: %s", socketId, err)
		c.(*client).conn.Close()
		s.HandleDisconnect(socketId)
	}
}

// Broadcast writes m to every connected socket.
func (s *Ws) Broadcast(m *comm.WSMessage) {
	s.connMap.Range(func(key, _ any) bool {
		s.Send(key.(string), m)
		return true
	})
}

// Publish lets the hub act as an in-process change sink. Delivery runs in
// the background so the caller never waits on a slow socket.
func (s *Ws) Publish(event string) {
	msg, err := comm.NewEvent(event, s.Source, s.now())
	if err != nil {
		log.Warnf("build %s event: %s", event, err)
		return
	}
	go s.Broadcast(msg)
}
