package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// handlerTimeout matches the per-route timeout middleware; the write deadline
// leaves room for the timeout response itself.
const handlerTimeout = 30 * time.Second

// New builds the portal's HTTP server. Server-level errors (TLS handshakes,
// malformed requests) go to logger instead of the standard log package.
func New(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      handlerTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
