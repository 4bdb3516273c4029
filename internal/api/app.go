package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/slopezm/go-umlcollab/internal/assistant"
	"github.com/slopezm/go-umlcollab/internal/config"
	"github.com/slopezm/go-umlcollab/internal/database"
	"github.com/slopezm/go-umlcollab/internal/diagram"
	"github.com/slopezm/go-umlcollab/internal/server"
)

type CollabApp struct {
	log            *log.Logger
	db             database.CollabRepository
	mux            *http.Server
	cs             *server.CollabServer
	coord          *diagram.Coordinator
	agent          assistant.Bridge
	signingKey     []byte
	allowedOrigins []string
}

func NewCollabApp(mux *http.ServeMux, logger *log.Logger, cs *server.CollabServer, db database.CollabRepository, coord *diagram.Coordinator, agent assistant.Bridge, cfg *config.Config) *CollabApp {
	s := &CollabApp{
		log:            logger,
		db:             db,
		cs:             cs,
		coord:          coord,
		agent:          agent,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/diagramas", s.authMiddleware(s.createDiagram))
	mux.Handle("GET /api/diagramas", s.authMiddleware(s.listDiagrams))
	mux.Handle("GET /api/diagramas/{id}", s.authMiddleware(s.getDiagram))
	mux.Handle("PUT /api/diagramas/{id}", s.authMiddleware(s.updateDiagram))
	mux.Handle("DELETE /api/diagramas/{id}", s.authMiddleware(s.deleteDiagram))
	mux.Handle("POST /api/diagramas/{id}/chat", s.authMiddleware(s.chatWithDiagram))
	mux.Handle("POST /api/invitations", s.authMiddleware(s.createInvitation))
	mux.Handle("PUT /api/invitations/{id}", s.authMiddleware(s.respondInvitation))
	mux.Handle("GET /api/invitations", s.authMiddleware(s.listInvitations))
	// no auth middleware: the websocket handshake authenticates
	// opportunistically and anonymous viewers are allowed
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CollabApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CollabApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
