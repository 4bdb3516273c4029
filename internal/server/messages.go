package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Client-to-server control events.
const (
	EventJoinRoom = "join-room"
	// EventJoinDiagram is the legacy alias older frontends still send.
	EventJoinDiagram    = "join-diagram"
	EventLeaveRoom      = "leave-room"
	EventGetOnlineUsers = "get-online-users"
)

// Server-to-client events.
const (
	EventOnlineUsers    = "online-users"
	EventPresenceUpdate = "presence-update"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventResponse       = "response"
	EventError          = "error"
)

// relayEvents maps each live-preview event to the name it fans out
// under. These are advisory traffic, not the source of truth; the
// server relays payloads verbatim without validating their shape.
var relayEvents = map[string]string{
	"update-diagram":  "diagram-updated",
	"move-class":      "class-moved",
	"mouse-move":      "mouse-moved",
	"add-class":       "class-added",
	"update-class":    "class-updated",
	"delete-class":    "class-deleted",
	"add-relation":    "relation-added",
	"update-relation": "relation-updated",
	"delete-relation": "relation-deleted",
}

// ClientMessage is the envelope every client frame carries. The event
// name is the wire contract; payload shape depends on the event.
type ClientMessage struct {
	Id      int             `json:"id,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`

	Timestamp time.Time `json:"-"`
	client    *Client
	// disconnect marks a leave synthesized by connection teardown, which
	// must not be acknowledged
	disconnect bool
}

type ServerMessage struct {
	Id         int       `json:"id,omitempty"`
	Event      string    `json:"event"`
	Payload    any       `json:"payload,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	SkipClient *Client   `json:"-"`
}

// Response is the payload of ack and error messages.
type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// roomIdPayload covers the two accepted join/get-online-users payload
// shapes: a {roomId} object or a bare string.
func parseRoomId(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var obj struct {
		RoomId string `json:"roomId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj.RoomId
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     EventResponse,
		Timestamp: Now(),
		Payload: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     EventError,
		Timestamp: Now(),
		Payload: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrMissingRoomId(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     EventError,
		Timestamp: Now(),
		Payload: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "missing roomId",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		Event:     EventError,
		Timestamp: Now(),
		Payload: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     EventError,
		Timestamp: Now(),
		Payload: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     EventError,
		Timestamp: Now(),
		Payload: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
