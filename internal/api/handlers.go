package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/slopezm/go-umlcollab/internal/database"
	"github.com/slopezm/go-umlcollab/internal/server"
	"github.com/slopezm/go-umlcollab/internal/types"
	"github.com/teris-io/shortid"
)

// staleWriteGrace is how much newer the stored diagram may be than the
// version the caller claims to have read before a direct update is
// rejected as a conflict.
const staleWriteGrace = 3 * time.Second

type CreateDiagramRequest struct {
	Titulo    string          `json:"titulo"`
	Contenido json.RawMessage `json:"contenido"`
}

type UpdateDiagramRequest struct {
	Titulo        string          `json:"titulo"`
	Contenido     json.RawMessage `json:"contenido"`
	LastUpdatedAt *time.Time      `json:"lastUpdatedAt,omitempty"`
}

// ConflictResponse tells the caller to reload instead of resubmitting;
// it carries the authoritative state so the client can do that in one
// round trip.
type ConflictResponse struct {
	Mensaje        string        `json:"mensaje"`
	NeedsReload    bool          `json:"needsReload"`
	CurrentDiagram types.Diagram `json:"currentDiagram"`
}

type CreateInvitationRequest struct {
	DiagramId string `json:"diagram_id"`
	Email     string `json:"email"`
}

type RespondInvitationRequest struct {
	Status string `json:"status"`
}

func (s *CollabApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func toApiDiagram(d database.Diagram) types.Diagram {
	return types.Diagram{
		Id:         d.Id,
		ExternalId: d.ExternalId,
		Title:      d.Title,
		Content:    d.Content,
		OwnerId:    d.OwnerId,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (s *CollabApp) createDiagram(w http.ResponseWriter, r *http.Request) {
	var req CreateDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := shortid.Generate()
	if err != nil {
		s.log.Print("shortid:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	content := req.Contenido
	if len(content) == 0 {
		raw, err := json.Marshal(types.DiagramContent{
			Titulo:    req.Titulo,
			Classes:   []types.ClassNode{},
			Relations: []types.RelationEdge{},
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		content = raw
	}

	newDiagram, err := s.db.CreateDiagram(database.CreateDiagramParams{
		ExternalId: sid,
		Title:      req.Titulo,
		Content:    content,
		OwnerId:    userId,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toApiDiagram(newDiagram))
}

func (s *CollabApp) listDiagrams(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbDiagrams, err := s.db.ListDiagramsByOwner(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	diagrams := make([]types.Diagram, 0, len(dbDiagrams))
	for _, d := range dbDiagrams {
		diagrams = append(diagrams, toApiDiagram(d))
	}

	s.writeJson(w, http.StatusOK, diagrams)
}

func (s *CollabApp) getDiagram(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbDiagram, err := s.db.GetDiagramByExternalId(r.PathValue("id"))
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.HasDiagramAccess(dbDiagram.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiDiagram(dbDiagram))
}

func (s *CollabApp) updateDiagram(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbDiagram, err := s.db.GetDiagramByExternalId(r.PathValue("id"))
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.HasDiagramAccess(dbDiagram.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// coarse staleness guard: a client whose copy predates the stored
	// version by more than the grace window must reload, not overwrite
	if req.LastUpdatedAt != nil {
		if dbDiagram.UpdatedAt.Sub(*req.LastUpdatedAt) > staleWriteGrace {
			s.log.Printf("rejected stale update of diagram %q: client is %.2fs behind",
				dbDiagram.ExternalId, dbDiagram.UpdatedAt.Sub(*req.LastUpdatedAt).Seconds())
			s.writeJson(w, http.StatusConflict, ConflictResponse{
				Mensaje:        "El diagrama ha sido actualizado recientemente. Por favor, recarga.",
				NeedsReload:    true,
				CurrentDiagram: toApiDiagram(dbDiagram),
			})
			return
		}
	}

	updated, err := s.db.UpdateDiagram(database.UpdateDiagramParams{
		Id:      dbDiagram.Id,
		Title:   req.Titulo,
		Content: req.Contenido,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiDiagram(updated))
}

func (s *CollabApp) deleteDiagram(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbDiagram, err := s.db.GetDiagramByExternalId(r.PathValue("id"))
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if dbDiagram.OwnerId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteDiagram(dbDiagram.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"mensaje": "Diagrama eliminado."})
}

func (s *CollabApp) createInvitation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DiagramId == "" || req.Email == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbDiagram, err := s.db.GetDiagramByExternalId(req.DiagramId)
	if err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only the owner can invite collaborators
	if dbDiagram.OwnerId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	invitee, err := s.db.GetAccountByEmail(req.Email)
	if err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	inv, err := s.db.CreateInvitation(dbDiagram.Id, invitee.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toApiInvitation(inv))
}

func (s *CollabApp) respondInvitation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	invId, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req RespondInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !slices.Contains([]string{types.InvitationAccepted, types.InvitationRejected}, req.Status) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	invitations, err := s.db.ListInvitationsForUser(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// an invitation can only be answered by its invitee
	idx := slices.IndexFunc(invitations, func(inv database.Invitation) bool {
		return inv.Id == invId
	})
	if idx == -1 {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.db.UpdateInvitationStatus(invId, req.Status)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiInvitation(updated))
}

func (s *CollabApp) listInvitations(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbInvitations, err := s.db.ListInvitationsForUser(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	invitations := make([]types.Invitation, 0, len(dbInvitations))
	for _, inv := range dbInvitations {
		invitations = append(invitations, toApiInvitation(inv))
	}

	s.writeJson(w, http.StatusOK, invitations)
}

func toApiInvitation(inv database.Invitation) types.Invitation {
	return types.Invitation{
		Id:        inv.Id,
		DiagramId: inv.DiagramId,
		UserId:    inv.UserId,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

// serveWs upgrades the connection and registers the client with the
// collab server. Authentication is opportunistic: a valid token (query
// param or session cookie) attaches the account identity, anything else
// joins anonymously. The connection is never rejected over auth;
// realtime presence is not a security boundary.
func (s *CollabApp) serveWs(w http.ResponseWriter, r *http.Request) {
	connectionId := uuid.NewString()

	participant := types.Participant{
		ConnectionId: connectionId,
		UserId:       connectionId,
		DisplayName:  "Invitado",
	}

	authenticated := false
	if tokenString := wsToken(r); tokenString != "" {
		if userId, err := s.extractUserIdFromToken(tokenString); err == nil {
			if user, err := s.db.GetAccountById(userId); err == nil {
				participant.UserId = strconv.Itoa(user.Id)
				participant.DisplayName = user.Username
				authenticated = true
			}
		} else {
			// downgraded to anonymous on purpose, see above
			s.log.Printf("ws handshake auth failed, continuing anonymously: %v", err)
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(connectionId, participant, authenticated, conn, s.cs, s.log)

	s.cs.RegisterChan <- client
	go client.Write()
	go client.Read()
}

func wsToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie(tokenCookieKey); err == nil {
		return cookie.Value
	}
	return ""
}
