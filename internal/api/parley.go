package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/directory"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/internal/server"
)

type ChatApp struct {
	log            *log.Logger
	dir            directory.Repository
	cs             *server.ChatServer
	router         *server.SessionRouter
	bc             *server.Broadcaster
	reg            *presence.Registry
	mux            *http.Server
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, router *server.SessionRouter,
	bc *server.Broadcaster, reg *presence.Registry, dir directory.Repository, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		dir:            dir,
		cs:             cs,
		router:         router,
		bc:             bc,
		reg:            reg,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /api/users", s.getUsers)
	mux.HandleFunc("POST /api/users", s.createUser)
	mux.HandleFunc("GET /api/users/{userId}/messages", s.requesterMiddleware(s.getUserMessages))
	mux.HandleFunc("PUT /api/users/{userId}/rooms", s.requesterMiddleware(s.addUserToRooms))
	mux.HandleFunc("GET /api/rooms", s.getRooms)
	mux.HandleFunc("POST /api/rooms", s.requesterMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms/{chatroomId}", s.requesterMiddleware(s.getRoom))
	mux.HandleFunc("GET /api/rooms/{chatroomId}/messages", s.requesterMiddleware(s.getRoomMessages))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", requesterHeader}),
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

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
