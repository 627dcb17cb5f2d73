package opsapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campaignd/internal/campaign"
	"campaignd/internal/runtime/supervisor"
	"campaignd/internal/schedule"
	logx "campaignd/pkg/logx"
)

// Runner is the part of campaign.Runner the ops API reads.
type Runner interface {
	Snapshot() campaign.Snapshot
	Gate() *schedule.Gate
}

// Deps are the read-only sources behind the ops endpoints.
type Deps struct {
	Runner     Runner
	Supervisor func() supervisor.Snapshot
	Version    string
	Started    time.Time
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Version    string               `json:"version,omitempty"`
	Uptime     string               `json:"uptime,omitempty"`
	Runner     campaign.Snapshot    `json:"runner"`
	Supervisor *supervisor.Snapshot `json:"supervisor,omitempty"`
}

// NormalizedDate is one entry of GET /v1/normalize.
type NormalizedDate struct {
	Input string `json:"input"`
	Valid bool   `json:"valid"`
	UTC   string `json:"utc,omitempty"`
	Local string `json:"local,omitempty"`
}

// NewRouter builds the ops handler. A non-empty token is required on every
// route as a bearer header or ?token= query parameter.
func NewRouter(d Deps, token string, log logx.Logger) http.Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(withAuth(token))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			resp := StatusResponse{Version: d.Version, Runner: d.Runner.Snapshot()}
			if !d.Started.IsZero() {
				resp.Uptime = time.Since(d.Started).Round(time.Second).String()
			}
			if d.Supervisor != nil {
				snap := d.Supervisor()
				resp.Supervisor = &snap
			}
			writeJSON(w, http.StatusOK, resp)
		})
		r.Get("/normalize", func(w http.ResponseWriter, req *http.Request) {
			dates := req.URL.Query()["date"]
			if len(dates) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing date parameter"})
				return
			}
			norm := d.Runner.Gate().Normalizer()
			out := make([]NormalizedDate, 0, len(dates))
			for _, raw := range dates {
				out = append(out, normalizeOne(norm, raw))
			}
			writeJSON(w, http.StatusOK, out)
		})
	})

	r.Mount("/debug", middleware.Profiler())
	return r
}

func normalizeOne(n *schedule.Normalizer, raw string) NormalizedDate {
	nd := NormalizedDate{Input: raw}
	at, ok := n.Normalize(raw)
	if !ok {
		return nd
	}
	nd.Valid = true
	nd.UTC = at.UTC().Format(time.RFC3339)
	nd.Local = at.In(n.Location()).Format(time.RFC3339)
	return nd
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func withAuth(token string) func(http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		if tok == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("token"); got != "" {
				if got == tok {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w)
				return
			}
			const p = "Bearer "
			if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func requestLogger(log logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("ops request",
				logx.String("method", r.Method),
				logx.String("path", r.URL.Path),
				logx.Int("status", ww.Status()),
				logx.Duration("took", time.Since(start)),
				logx.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
