// Package httpserver is the allocator daemon's optional diagnostic surface
// (spec.md §4.4: "a diagnostic aid, not a public contract"). Router and
// middleware chain generalized from
// cc-backend/cmd/cc-backend/main.go's mux.NewRouter()+gorilla/handlers
// setup.
package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"govetachun/kbuddy/internal/buddy"
	"govetachun/kbuddy/internal/stats"
	"govetachun/kbuddy/pkg/klog"
)

// New builds the HTTP handler for the diagnostic surface: GET /healthz,
// GET /report, GET /metrics (when registry is non-nil), POST /alloc,
// POST /free.
func New(alloc *buddy.Allocator, registry *prometheus.Registry) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/report", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := alloc.Report(w); err != nil {
			klog.Warnf("httpserver: report write failed: %v", err)
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/alloc", allocHandler(alloc)).Methods(http.MethodPost)
	r.HandleFunc("/free", freeHandler(alloc)).Methods(http.MethodPost)

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)))
	r.Use(handlers.CompressHandler)

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		klog.Debugf("%s %s (%d, %dms)", params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
	})
}

type allocRequest struct {
	Pages int `json:"pages"`
}

type allocResponse struct {
	Address string `json:"address,omitempty"`
	Error   string `json:"error,omitempty"`
}

func allocHandler(alloc *buddy.Allocator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req allocRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, allocResponse{Error: err.Error()})
			return
		}
		addr, err := alloc.TryAlloc(req.Pages)
		if err != nil {
			writeJSON(w, http.StatusConflict, allocResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, allocResponse{Address: "0x" + strconv.FormatUint(uint64(addr), 16)})
	}
}

type freeRequest struct {
	Address string `json:"address"`
}

func freeHandler(alloc *buddy.Allocator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req freeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, allocResponse{Error: err.Error()})
			return
		}
		addr, err := strconv.ParseUint(trimHexPrefix(req.Address), 16, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, allocResponse{Error: "address must be hex"})
			return
		}
		// A misbehaving caller here triggers the core's own fatal
		// assertion (spec.md §7 class 1); gorilla's RecoveryHandler turns
		// that panic into a 500 instead of crashing the daemon, so the
		// diagnostic surface can report the caller bug without taking the
		// allocator down with it.
		alloc.Free(uintptr(addr))
		writeJSON(w, http.StatusOK, allocResponse{})
	}
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewRegistry returns a Prometheus registry with alloc's collector
// registered, or nil when metrics are disabled.
func NewRegistry(alloc *buddy.Allocator, enabled bool) *prometheus.Registry {
	if !enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewCollector("default", alloc))
	return reg
}
