package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/slopezm/go-umlcollab/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client wraps one websocket connection. Identity is fixed at handshake:
// an authenticated connection carries the account's user id and display
// name, an anonymous one falls back to its connection id. A client can
// be joined to several rooms at once; each leave or disconnect removes
// it from all of them.
type Client struct {
	conn          *websocket.Conn
	collabServer  *CollabServer
	log           *log.Logger
	connectionId  string
	participant   types.Participant
	authenticated bool
	send          chan *ServerMessage
	rooms         map[string]*Room
	roomsLock     sync.RWMutex
	stop          chan struct{}
	stopOnce      sync.Once
}

func NewClient(connectionId string, participant types.Participant, authenticated bool, conn *websocket.Conn, cs *CollabServer, l *log.Logger) *Client {
	return &Client{
		conn:          conn,
		collabServer:  cs,
		log:           l,
		connectionId:  connectionId,
		participant:   participant,
		authenticated: authenticated,
		send:          make(chan *ServerMessage, 256),
		rooms:         make(map[string]*Room),
		stop:          make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.Timestamp = Now()

		c.dispatch(&msg)
	}
}

// dispatch routes one decoded frame. Every branch replies to the caller
// on failure instead of propagating; a bad frame must never take the
// connection (or the process) down.
func (c *Client) dispatch(msg *ClientMessage) {
	switch msg.Event {
	case EventJoinRoom, EventJoinDiagram:
		if parseRoomId(msg.Payload) == "" {
			c.queueMessage(ErrMissingRoomId(msg.Id))
			return
		}
		c.joinRoom(msg)
	case EventLeaveRoom:
		c.leaveRoom(msg)
	case EventGetOnlineUsers:
		roomId := parseRoomId(msg.Payload)
		if roomId == "" {
			c.queueMessage(ErrMissingRoomId(msg.Id))
			return
		}
		c.queueMessage(&ServerMessage{
			Id:        msg.Id,
			Event:     EventOnlineUsers,
			Timestamp: Now(),
			Payload:   c.collabServer.GetOnlineUsers(roomId),
		})
	default:
		if _, ok := relayEvents[msg.Event]; ok {
			c.relay(msg)
			return
		}
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) relay(msg *ClientMessage) {
	roomId := parseRoomId(msg.Payload)
	if roomId == "" {
		c.queueMessage(ErrMissingRoomId(msg.Id))
		return
	}

	r := c.getRoom(roomId)
	if r == nil {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	select {
	case r.relayChan <- msg:
	default:
		c.queueMessage(ErrServiceUnavailable(msg.Id))
		c.log.Printf("relayChan full for room %q", r.externalId)
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.collabServer.deRegisterChan <- c
	c.leaveAllRooms()
	c.stopClient()
}

func (c *Client) leaveAllRooms() {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	for _, room := range c.rooms {
		room.leaveChan <- &ClientMessage{
			Event:      EventLeaveRoom,
			client:     c,
			disconnect: true,
		}
	}
}

func (c *Client) joinRoom(msg *ClientMessage) {
	select {
	case c.collabServer.joinChan <- msg:
	default:
		c.log.Printf("joinChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) leaveRoom(msg *ClientMessage) {
	roomId := parseRoomId(msg.Payload)
	if roomId == "" {
		c.queueMessage(ErrMissingRoomId(msg.Id))
		return
	}

	r := c.getRoom(roomId)
	if r == nil {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	select {
	case r.leaveChan <- msg:
	default:
		c.log.Printf("leaveChan full for room %q", r.externalId)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) delRoom(id string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	delete(c.rooms, id)
}

func (c *Client) addRoom(r *Room) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	c.rooms[r.externalId] = r
}

func (c *Client) getRoom(id string) *Room {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	if room, ok := c.rooms[id]; ok {
		return room
	}

	return nil
}
