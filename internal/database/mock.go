package database

import (
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

type MockCollabRepository struct {
	mock.Mock
}

func (m *MockCollabRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockCollabRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockCollabRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockCollabRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockCollabRepository) CreateDiagram(params CreateDiagramParams) (Diagram, error) {
	args := m.Called(params)
	return args.Get(0).(Diagram), args.Error(1)
}
func (m *MockCollabRepository) GetDiagramById(id int) (Diagram, error) {
	args := m.Called(id)
	return args.Get(0).(Diagram), args.Error(1)
}
func (m *MockCollabRepository) GetDiagramByExternalId(externalId string) (Diagram, error) {
	args := m.Called(externalId)
	return args.Get(0).(Diagram), args.Error(1)
}
func (m *MockCollabRepository) ListDiagramsByOwner(ownerId int) ([]Diagram, error) {
	args := m.Called(ownerId)
	return args.Get(0).([]Diagram), args.Error(1)
}
func (m *MockCollabRepository) UpdateDiagram(params UpdateDiagramParams) (Diagram, error) {
	args := m.Called(params)
	return args.Get(0).(Diagram), args.Error(1)
}
func (m *MockCollabRepository) UpdateDiagramContent(id int, content json.RawMessage) (Diagram, error) {
	args := m.Called(id, content)
	return args.Get(0).(Diagram), args.Error(1)
}
func (m *MockCollabRepository) DeleteDiagram(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockCollabRepository) CreateInvitation(diagramId, userId int) (Invitation, error) {
	args := m.Called(diagramId, userId)
	return args.Get(0).(Invitation), args.Error(1)
}
func (m *MockCollabRepository) UpdateInvitationStatus(id int, status string) (Invitation, error) {
	args := m.Called(id, status)
	return args.Get(0).(Invitation), args.Error(1)
}
func (m *MockCollabRepository) ListInvitationsForUser(userId int) ([]Invitation, error) {
	args := m.Called(userId)
	return args.Get(0).([]Invitation), args.Error(1)
}
func (m *MockCollabRepository) HasDiagramAccess(diagramId, userId int) bool {
	args := m.Called(diagramId, userId)
	return args.Bool(0)
}
