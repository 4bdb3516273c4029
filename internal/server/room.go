package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/slopezm/go-umlcollab/internal/types"
)

const idleRoomTimeout = time.Second * 5

type exitReq struct {
	done chan string
}

// Room fans events out to the connections editing one diagram. All
// membership mutations happen on the room's goroutine, so the clients
// map needs no locking beyond the teardown path.
type Room struct {
	externalId string
	cs         *CollabServer
	joinChan   chan *ClientMessage
	leaveChan  chan *ClientMessage
	relayChan  chan *ClientMessage
	serverChan chan *ServerMessage
	clients    map[*Client]struct{}
	clientLock sync.RWMutex
	log        *log.Logger
	// killTimer unloads the room once the last client is gone
	killTimer *time.Timer
	exit      chan exitReq
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.relayChan:
			r.handleRelay(msg)
		case msg := <-r.serverChan:
			r.broadcast(msg)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.externalId)
	select {
	case r.cs.unloadRoomChan <- r.externalId:
	default:
		// hub is busy, retry on the next tick
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.externalId)

	r.clientLock.Lock()
	for c := range r.clients {
		r.cs.presence.Remove(r.externalId, c.connectionId)
		c.delRoom(r.externalId)
	}
	clear(r.clients)
	r.clientLock.Unlock()

	if e.done != nil {
		e.done <- r.externalId
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	// stop the kill timer since we have a new client
	r.killTimer.Stop()

	c := join.client
	r.addClient(c)

	// registering by connection id makes a re-join replace the previous
	// entry instead of duplicating it
	r.cs.presence.Upsert(r.externalId, c.connectionId, c.participant)

	participants := r.cs.presence.List(r.externalId)

	// snapshot to the joiner, both as the ack and as a dedicated event
	c.queueMessage(NoErrOK(join.Id, participants))
	c.queueMessage(&ServerMessage{
		Event:     EventOnlineUsers,
		Timestamp: Now(),
		Payload:   participants,
	})

	// delta plus full list to everyone else
	r.broadcast(&ServerMessage{
		Event:      EventUserJoined,
		Timestamp:  Now(),
		Payload:    c.participant,
		SkipClient: c,
	})
	r.broadcast(&ServerMessage{
		Event:      EventPresenceUpdate,
		Timestamp:  Now(),
		Payload:    presenceUpdate{OnlineUsers: participants},
		SkipClient: c,
	})
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	c := leaveMsg.client

	// a leave can fire twice for one connection (explicit leave followed
	// by disconnect); the second one must be a no-op
	if !r.removeClient(c) {
		if !leaveMsg.disconnect {
			c.queueMessage(ErrRoomNotFound(leaveMsg.Id))
		}
		return
	}

	r.cs.presence.Remove(r.externalId, c.connectionId)

	if !leaveMsg.disconnect {
		c.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}

	r.broadcast(&ServerMessage{
		Event:      EventUserLeft,
		Timestamp:  Now(),
		Payload:    c.participant,
		SkipClient: c,
	})
	r.broadcast(&ServerMessage{
		Event:      EventPresenceUpdate,
		Timestamp:  Now(),
		Payload:    presenceUpdate{OnlineUsers: r.cs.presence.List(r.externalId)},
		SkipClient: c,
	})
}

// handleRelay forwards a live-preview event verbatim to every other
// client in the room. The sender never hears its own event back.
func (r *Room) handleRelay(msg *ClientMessage) {
	outEvent, ok := relayEvents[msg.Event]
	if !ok {
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	r.cs.su.Incr(metricEventsRelayed)
	r.broadcast(&ServerMessage{
		Event:      outEvent,
		Timestamp:  msg.Timestamp,
		Payload:    json.RawMessage(msg.Payload),
		SkipClient: msg.client,
	})
}

type presenceUpdate struct {
	OnlineUsers []types.Participant `json:"onlineUsers"`
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) bool {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return false
	}

	delete(r.clients, c)
	c.delRoom(r.externalId)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
	return true
}

func (r *Room) broadcast(msg *ServerMessage) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}
