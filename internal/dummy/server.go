package dummy

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Port int
	// Dir is served under /serve_dir/. Empty serves a small in-memory payload instead.
	Dir string
}

// Payload is returned by /serve_dir/ when no directory is configured.
var Payload = []byte(strings.Repeat("vuload", 1024))

// NewHandler builds the target endpoints. It is also what tests point the engine at.
func NewHandler(cfg ServerConfig) http.Handler {
	mux := http.NewServeMux()

	// Plain greeting, same as the reference target service.
	mux.HandleFunc("GET /hello", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello, world!"))
	})

	// Fast Endpoint (10-50ms)
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		sleep(r, time.Duration(rand.Intn(40)+10)*time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Fast response"))
	})

	// Slow Endpoint (1s-2s), good for timeouts. ?ms= pins the delay.
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		d := time.Duration(rand.Intn(1000)+1000) * time.Millisecond
		if v, err := strconv.Atoi(r.URL.Query().Get("ms")); err == nil {
			d = time.Duration(v) * time.Millisecond
		}
		sleep(r, d)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Slow response"))
	})

	// Error Endpoint (Random failures)
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		if rnd < 0.2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
		} else if rnd < 0.4 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("429 Too Many Requests"))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}
	})

	// Fixed status, e.g. /status/503
	mux.HandleFunc("/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(r.PathValue("code"))
		if err != nil || code < 100 || code > 599 {
			http.Error(w, "bad status code", http.StatusBadRequest)
			return
		}
		w.WriteHeader(code)
		fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
	})

	if cfg.Dir != "" {
		mux.Handle("/serve_dir/", http.StripPrefix("/serve_dir/", http.FileServer(http.Dir(cfg.Dir))))
	} else {
		mux.HandleFunc("/serve_dir/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(Payload)
		})
	}

	return mux
}

// sleep waits for d unless the client goes away first.
func sleep(r *http.Request, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.Context().Done():
	}
}

// Start serves the target endpoints in the background and returns the server.
func Start(cfg ServerConfig) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: NewHandler(cfg),
	}

	log.WithField("addr", addr).Info("dummy server listening")
	log.Info("endpoints: /hello, /fast, /slow, /error, /status/{code}, /serve_dir/")

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("dummy server failed")
		}
	}()
	return server
}
