package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const writeDeadline = 5 * time.Second

// connAndDone pairs a websocket connection with a channel the hub loop uses
// to signal the websocket handler when the (un)registration is applied.
type connAndDone struct {
	connection *websocket.Conn
	doneChan   chan bool
}

// hub owns every /stream connection. All connection state is confined to the
// run loop goroutine; the public methods communicate with it over channels,
// so broadcasts from the tick loop and connection churn from fiber handlers
// never race.
type hub struct {
	logger zerolog.Logger

	connections    map[*websocket.Conn]bool
	broadcastChan  chan []byte
	flushChan      chan bool
	registerChan   chan connAndDone
	unregisterChan chan connAndDone
	shutdownChan   chan chan bool
	connCountChan  chan chan int
	messageQueue   [][]byte
	isRunning      atomic.Bool
}

func newHub(logger zerolog.Logger) *hub {
	h := &hub{
		logger:         logger,
		connections:    map[*websocket.Conn]bool{},
		broadcastChan:  make(chan []byte),
		flushChan:      make(chan bool),
		registerChan:   make(chan connAndDone),
		unregisterChan: make(chan connAndDone),
		shutdownChan:   make(chan chan bool),
		connCountChan:  make(chan chan int),
		messageQueue:   make([][]byte, 0),
	}
	go h.run()
	return h
}

func (h *hub) registerConnection(conn *websocket.Conn) {
	doneChan := make(chan bool)
	h.registerChan <- connAndDone{connection: conn, doneChan: doneChan}
	<-doneChan
}

func (h *hub) unregisterConnection(conn *websocket.Conn) {
	doneChan := make(chan bool)
	h.unregisterChan <- connAndDone{connection: conn, doneChan: doneChan}
	<-doneChan
}

// broadcast queues a message for the next flush.
func (h *hub) broadcast(msg []byte) {
	h.broadcastChan <- msg
}

// flush writes every queued message to every connection and blocks until the
// writes complete. Connections that fail a write are dropped.
func (h *hub) flush() {
	h.flushChan <- true
}

func (h *hub) connectionCount() int {
	countChan := make(chan int)
	h.connCountChan <- countChan
	return <-countChan
}

// shutdown stops the run loop and closes all connections. Safe to call more
// than once.
func (h *hub) shutdown() {
	if !h.isRunning.Load() {
		return
	}
	doneChan := make(chan bool)
	h.shutdownChan <- doneChan
	<-doneChan
}

func (h *hub) run() {
	h.isRunning.Store(true)
	drop := func(conn *websocket.Conn) {
		if _, ok := h.connections[conn]; !ok {
			return
		}
		delete(h.connections, conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug().Err(eris.Wrap(err, "")).Msg("failed to close stream connection")
		}
	}

	for {
		select {
		case countChan := <-h.connCountChan:
			countChan <- len(h.connections)
		case cd := <-h.registerChan:
			h.connections[cd.connection] = true
			cd.doneChan <- true
		case cd := <-h.unregisterChan:
			drop(cd.connection)
			cd.doneChan <- true
		case msg := <-h.broadcastChan:
			h.messageQueue = append(h.messageQueue, msg)
		case <-h.flushChan:
			h.flushQueue(drop)
		case doneChan := <-h.shutdownChan:
			for conn := range h.connections {
				drop(conn)
			}
			h.isRunning.Store(false)
			doneChan <- true
			return
		}
	}
}

func (h *hub) flushQueue(drop func(*websocket.Conn)) {
	if len(h.messageQueue) == 0 {
		return
	}
	var failed []*websocket.Conn
	var failedMu sync.Mutex
	var wg sync.WaitGroup
	for conn := range h.connections {
		conn := conn
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, msg := range h.messageQueue {
				if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
					failedMu.Lock()
					failed = append(failed, conn)
					failedMu.Unlock()
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					failedMu.Lock()
					failed = append(failed, conn)
					failedMu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	for _, conn := range failed {
		drop(conn)
	}
	h.messageQueue = h.messageQueue[:0]
}
