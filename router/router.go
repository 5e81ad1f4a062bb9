package router

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"notesync/config"
	accountHandler "notesync/internal/account"
	accountRepository "notesync/internal/account/repository"
	accountService "notesync/internal/account/service"
	documentHandler "notesync/internal/document"
	"notesync/internal/document/repository"
	"notesync/internal/document/service"
	"notesync/internal/vault"
	"notesync/middleware"
	"notesync/socket"
)

func Setup(db *sql.DB, hub *socket.Hub, cfg config.Server) (http.Handler, error) {
	v, err := vault.New(cfg.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("invalid master key: %w", err)
	}
	limit := cfg.AuthRateLimit
	if limit <= 0 {
		limit = config.DefaultAuthRateLimit
	}

	accounts := accountService.NewAccountService(accountRepository.NewAccountRepository(db), v, cfg.JWTSecret, cfg.TokenTTL)
	authHandler := accountHandler.NewAccountHandler(accounts)

	docRepo := repository.NewDocumentRepository(db)
	docService := service.NewDocumentService(docRepo, accounts, hub)
	notesHandler := documentHandler.NewDocumentHandler(docService)

	auth := middleware.Auth(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(limit, time.Minute)
	limiter.TrustForwarded = cfg.TrustProxy

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "notesync is alive")
	})

	// Auth
	mux.Handle("POST /register", limiter.Limit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /login", limiter.Limit(http.HandlerFunc(authHandler.Login)))

	// Notes
	mux.Handle("GET /notes", auth(http.HandlerFunc(notesHandler.ListNotes)))
	mux.Handle("POST /notes", auth(http.HandlerFunc(notesHandler.CreateNote)))
	mux.Handle("PUT /notes", auth(http.HandlerFunc(notesHandler.UpdateNote)))
	mux.Handle("DELETE /notes", auth(http.HandlerFunc(notesHandler.DeleteNote)))

	// Change stream
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.Username(r.Context()))
	})
	mux.Handle("GET /ws", auth(wsHandler))

	return middleware.RequestLogger(middleware.SecurityHeaders(middleware.CORS(cfg.CORSOrigin)(mux))), nil
}
