package types

import (
	"encoding/json"
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ClassNode is a single class box in a diagram. Identity is by Id;
// two nodes with the same Id are the same entity for merge purposes.
type ClassNode struct {
	Id         string   `json:"id"`
	Name       string   `json:"name"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Attributes []string `json:"attributes"`
	Methods    []string `json:"methods"`
}

// RelationEdge connects two class nodes. The Type vocabulary and the
// multiplicity field spellings are preserved verbatim from the editor
// frontend because they drive code generation downstream.
type RelationEdge struct {
	Id                   string `json:"id"`
	Type                 string `json:"type"`
	Source               string `json:"source"`
	Target               string `json:"target"`
	MultiplicidadOrigen  string `json:"multiplicidadOrigen"`
	MultiplicidadDestino string `json:"multiplicidadDestino"`
}

// DiagramContent is the JSON document stored for a diagram. The realtime
// layer treats it as opaque except for the two top-level arrays.
type DiagramContent struct {
	Titulo    string         `json:"titulo,omitempty"`
	Classes   []ClassNode    `json:"classes"`
	Relations []RelationEdge `json:"relations"`
}

// Relation type vocabulary. Spelling and casing come from the editor
// frontend and must not be changed; code generation keys off them.
const (
	RelAsociacion     = "Asociación"
	RelComposicion    = "Composición"
	RelAgregacion     = "Agregación"
	RelGeneralizacion = "Generalización"
	RelUnoAMuchos     = "Uno a Muchos"
	RelMuchosAMuchos  = "Muchos a Muchos"
)

// Diagram is the stored record. Content is kept as raw JSON: the server
// never interprets it beyond the top-level classes/relations arrays, and
// round-tripping it through typed structs would drop unknown fields the
// frontend stores alongside them.
type Diagram struct {
	Id         int             `json:"id"`
	ExternalId string          `json:"external_id"`
	Title      string          `json:"titulo"`
	Content    json.RawMessage `json:"contenido"`
	OwnerId    int             `json:"owner_id"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Participant is one connection's public presence info in a room.
// UserId falls back to the connection id for anonymous connections.
type Participant struct {
	ConnectionId string `json:"socketId"`
	UserId       string `json:"userId"`
	DisplayName  string `json:"username"`
}

type Invitation struct {
	Id        int       `json:"id"`
	DiagramId int       `json:"diagram_id"`
	UserId    int       `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)
