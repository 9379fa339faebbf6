package statusservice

import (
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is the part of the websocket connection the keeper needs
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper tracks which connections subscribed to which transcript ID.
// A connection subscribes by sending the ID as a text message and may
// resubscribe to another ID over the same connection.
type WSConnKeeper struct {
	lock      sync.Mutex
	connsByID map[string]map[WsConn]struct{}
	idByConn  map[WsConn]string
	maxIdle   time.Duration
}

// NewWSConnKeeper creates the keeper
func NewWSConnKeeper() *WSConnKeeper {
	return &WSConnKeeper{
		connsByID: map[string]map[WsConn]struct{}{},
		idByConn:  map[WsConn]string{},
		// drop connections silent for too long
		maxIdle: time.Minute * 30,
	}
}

// HandleConnection reads subscription messages until the connection dies
// or goes idle. Blocks.
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.unsubscribe(conn)
	defer conn.Close()

	readCh := make(chan string)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Debug().Err(err).Msg("ws read ended")
				return
			}
			id := strings.TrimSpace(string(message))
			goapp.Log.Debug().Str("msg", goapp.Sanitize(id)).Msg("ws msg")
			if id == "" {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			readCh <- id
		}
	}()

	idleTimer := time.After(kp.maxIdle)
	for {
		select {
		case <-idleTimer:
			goapp.Log.Debug().Msg("ws conn idle, dropping")
			return nil
		case id, ok := <-readCh:
			if !ok {
				goapp.Log.Debug().Msg("ws conn closed")
				return nil
			}
			kp.subscribe(conn, id)
			idleTimer = time.After(kp.maxIdle)
		}
	}
}

func (kp *WSConnKeeper) subscribe(conn WsConn, id string) {
	goapp.Log.Info().Str("ID", id).Msg("ws subscribe")
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.dropLocked(conn)
	kp.idByConn[conn] = id
	conns, ok := kp.connsByID[id]
	if !ok {
		conns = map[WsConn]struct{}{}
		kp.connsByID[id] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Info().Int("active", len(kp.idByConn)).Msg("ws subscribed")
}

func (kp *WSConnKeeper) unsubscribe(conn WsConn) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.dropLocked(conn)
	goapp.Log.Info().Int("active", len(kp.idByConn)).Msg("ws conn dropped")
}

func (kp *WSConnKeeper) dropLocked(conn WsConn) {
	if id, ok := kp.idByConn[conn]; ok {
		if conns, ok := kp.connsByID[id]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.connsByID, id)
			}
		}
	}
	delete(kp.idByConn, conn)
}

// GetConnections returns connections subscribed to the ID
func (kp *WSConnKeeper) GetConnections(id string) ([]WsConn, bool) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	cm, ok := kp.connsByID[id]
	if !ok {
		return nil, false
	}
	res := make([]WsConn, 0, len(cm))
	for c := range cm {
		res = append(res, c)
	}
	return res, true
}
