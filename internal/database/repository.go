package database

import "encoding/json"

type CollabRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateDiagram(params CreateDiagramParams) (Diagram, error)
	GetDiagramById(id int) (Diagram, error)
	GetDiagramByExternalId(externalId string) (Diagram, error)
	ListDiagramsByOwner(ownerId int) ([]Diagram, error)
	UpdateDiagram(params UpdateDiagramParams) (Diagram, error)
	UpdateDiagramContent(id int, content json.RawMessage) (Diagram, error)
	DeleteDiagram(id int) error
	CreateInvitation(diagramId, userId int) (Invitation, error)
	UpdateInvitationStatus(id int, status string) (Invitation, error)
	ListInvitationsForUser(userId int) ([]Invitation, error)
	HasDiagramAccess(diagramId, userId int) bool
}
