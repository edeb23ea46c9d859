package httpserver

import (
	"net/http"
	"time"
)

// New returns the API server. WriteTimeout stays above the service's default
// unit of work deadline so a slow ledger transaction still gets its response
// written.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}
