package server

import (
	"context"
	"log"
	"sync"

	"github.com/slopezm/go-umlcollab/internal/database"
	"github.com/slopezm/go-umlcollab/internal/stats"
	"github.com/slopezm/go-umlcollab/internal/types"
)

const (
	metricActiveConnections = "ActiveConnections"
	metricActiveRooms       = "ActiveRooms"
	metricEventsRelayed     = "EventsRelayed"
)

type roomBroadcast struct {
	roomId string
	msg    *ServerMessage
}

// CollabServer is the realtime gateway hub: it owns the room table and
// the presence registry, and serializes room creation/teardown on a
// single goroutine.
type CollabServer struct {
	log            *log.Logger
	db             database.CollabRepository
	su             stats.StatsProvider
	presence       *PresenceRegistry
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *ClientMessage
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan string
	broadcastChan  chan *roomBroadcast
	rooms          map[string]*Room
	stop           chan struct{}
	done           chan struct{}
}

func NewCollabServer(logger *log.Logger, db database.CollabRepository, su stats.StatsProvider) (*CollabServer, error) {
	su.RegisterMetric(metricActiveConnections)
	su.RegisterMetric(metricActiveRooms)
	su.RegisterMetric(metricEventsRelayed)

	return &CollabServer{
		log:            logger,
		db:             db,
		su:             su,
		presence:       NewPresenceRegistry(),
		clients:        make(map[*Client]struct{}),
		joinChan:       make(chan *ClientMessage, 256),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan string, 256),
		broadcastChan:  make(chan *roomBroadcast, 256),
		rooms:          make(map[string]*Room),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *CollabServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			cs.handleJoin(joinMsg)
		case client := <-cs.RegisterChan:
			cs.addClient(client)
			cs.su.Incr(metricActiveConnections)
		case client := <-cs.deRegisterChan:
			cs.removeClient(client)
			cs.su.Decr(metricActiveConnections)
		case id := <-cs.unloadRoomChan:
			cs.unloadRoom(id)
		case rb := <-cs.broadcastChan:
			if room, ok := cs.rooms[rb.roomId]; ok {
				select {
				case room.serverChan <- rb.msg:
				default:
					cs.log.Printf("serverChan full on room %q, dropping broadcast", rb.roomId)
				}
			}
		case <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				done := make(chan string)
				r.exit <- exitReq{done: done}
				<-done
			}

			close(cs.done)
			return
		}
	}
}

// handleJoin routes a join to its room, spinning the room up on first
// join. Room ids are diagram external ids; a join for a diagram that
// does not exist is answered with an error ack, and nothing is mutated.
func (cs *CollabServer) handleJoin(joinMsg *ClientMessage) {
	roomId := parseRoomId(joinMsg.Payload)

	room, ok := cs.rooms[roomId]
	if !ok {
		if _, err := cs.db.GetDiagramByExternalId(roomId); err != nil {
			cs.log.Printf("join %q: %v", roomId, err)
			joinMsg.client.queueMessage(ErrRoomNotFound(joinMsg.Id))
			return
		}

		room = &Room{
			externalId: roomId,
			cs:         cs,
			joinChan:   make(chan *ClientMessage, 256),
			leaveChan:  make(chan *ClientMessage, 256),
			relayChan:  make(chan *ClientMessage, 256),
			serverChan: make(chan *ServerMessage, 256),
			clients:    make(map[*Client]struct{}),
			log:        cs.log,
			exit:       make(chan exitReq),
		}

		cs.rooms[roomId] = room
		cs.su.Incr(metricActiveRooms)
		go room.start()
	}

	select {
	case room.joinChan <- joinMsg:
	default:
		cs.log.Printf("join channel full on room %q", room.externalId)
		joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
	}
}

// BroadcastToRoom delivers a server-originated event to every client in
// a room. With nobody connected there is no room and nothing to do.
func (cs *CollabServer) BroadcastToRoom(roomId, event string, payload any) {
	rb := &roomBroadcast{
		roomId: roomId,
		msg: &ServerMessage{
			Event:     event,
			Timestamp: Now(),
			Payload:   payload,
		},
	}

	select {
	case cs.broadcastChan <- rb:
	case <-cs.stop:
	}
}

// GetOnlineUsers returns the current participant list of a room.
func (cs *CollabServer) GetOnlineUsers(roomId string) []types.Participant {
	return cs.presence.List(roomId)
}

func (cs *CollabServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *CollabServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

func (cs *CollabServer) unloadRoom(roomId string) {
	r, ok := cs.rooms[roomId]
	if !ok {
		return
	}

	delete(cs.rooms, roomId)
	cs.su.Decr(metricActiveRooms)

	done := make(chan string)
	r.exit <- exitReq{done: done}
	<-done
	cs.log.Printf("unloaded room %q", roomId)
}

func (cs *CollabServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
