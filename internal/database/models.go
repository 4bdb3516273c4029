package database

import (
	"encoding/json"
	"time"
)

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Diagram struct {
	Id         int
	ExternalId string
	Title      string
	Content    json.RawMessage
	OwnerId    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Invitation struct {
	Id        int
	DiagramId int
	UserId    int
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreateDiagramParams struct {
	ExternalId string
	Title      string
	Content    json.RawMessage
	OwnerId    int
}

type UpdateDiagramParams struct {
	Id      int
	Title   string
	Content json.RawMessage
}
