// Package server exposes the mint pipeline over HTTP. Mutating routes
// are HMAC-authenticated; read routes are open.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"bridgemint/internal/hmacauth"
	"bridgemint/internal/mint"
	"bridgemint/internal/minter"
)

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port          int
	HMACSecret    string
	HMACClockSkew time.Duration
	// RPCHealth and DBHealth may be nil when the backend has no probe.
	RPCHealth Pinger
	DBHealth  Pinger
	Log       zerolog.Logger
}

type Server struct {
	svc        *mint.Service
	opts       Options
	hmac       *hmacauth.Verifier
	metrics    *metricsRegistry
	httpServer *http.Server
	log        zerolog.Logger
}

func NewServer(svc *mint.Service, opts Options) *Server {
	s := &Server{
		svc:  svc,
		opts: opts,
		hmac: &hmacauth.Verifier{
			Secret:  opts.HMACSecret,
			MaxSkew: opts.HMACClockSkew,
		},
		metrics: newMetricsRegistry(),
		log:     opts.Log,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/mint-request", s.hmac.Middleware(http.HandlerFunc(s.handleMintRequest)))
	mux.Handle("POST /api/v1/send", s.hmac.Middleware(http.HandlerFunc(s.handleSend)))
	mux.HandleFunc("GET /api/v1/holds", s.handleListHolds)
	mux.HandleFunc("GET /api/v1/holds/{holdId}", s.handleGetHold)
	mux.HandleFunc("GET /api/v1/transfers", s.handleListTransfers)
	mux.HandleFunc("GET /api/v1/transfers/{id}", s.handleGetTransfer)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.Handle("GET /api/v1/metrics", s.metrics.handler())

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(opts.Port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleMintRequest(w http.ResponseWriter, r *http.Request) {
	var req mint.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid json payload",
		})
		s.metrics.incMint("rejected")
		return
	}

	start := time.Now()
	res := s.svc.ExecuteMint(r.Context(), req)
	s.metrics.observeMintDuration(time.Since(start).Seconds())
	s.metrics.incMint(mintStatusLabel(res))
	if res.PriceSnapshot != nil {
		s.metrics.incPriceSource(res.PriceSnapshot.Source)
	}

	writeJSON(w, mintStatusCode(res), res)
}

func mintStatusLabel(res mint.MintResult) string {
	switch {
	case res.Success && res.Idempotent:
		return "cached"
	case res.Success:
		return "success"
	case res.Error == mint.ErrCodeInvalidBeneficiary, res.Error == mint.ErrCodeInvalidAmount:
		return "rejected"
	case res.Error == mint.ErrCodeRequestInProgress:
		return "in_progress"
	default:
		return "failed"
	}
}

func mintStatusCode(res mint.MintResult) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Error == mint.ErrCodeInvalidBeneficiary, res.Error == mint.ErrCodeInvalidAmount:
		return http.StatusBadRequest
	case res.Error == mint.ErrCodeRequestInProgress, res.Error == mint.ErrCodeHoldAlreadyUsed:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req mint.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid json payload",
		})
		s.metrics.incSend("rejected")
		return
	}

	res := s.svc.Send(r.Context(), req)
	switch {
	case res.Success:
		s.metrics.incSend("success")
		writeJSON(w, http.StatusOK, res)
	case res.Error == "INVALID_TO_ADDRESS" || res.Error == mint.ErrCodeInvalidAmount:
		s.metrics.incSend("rejected")
		writeJSON(w, http.StatusBadRequest, res)
	default:
		s.metrics.incSend("failed")
		writeJSON(w, http.StatusBadGateway, res)
	}
}

func (s *Server) handleListHolds(w http.ResponseWriter, r *http.Request) {
	holds, err := s.svc.ListHolds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holds": holds, "count": len(holds)})
}

func (s *Server) handleGetHold(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.GetHold(r.Context(), r.PathValue("holdId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "hold not found"})
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.svc.ListTransfers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": transfers, "count": len(transfers)})
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	tr, err := s.svc.GetTransfer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if tr == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "transfer not found"})
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type probeResult struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latencyMs,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	healthy := true

	probe := func(p Pinger) probeResult {
		if p == nil {
			return probeResult{Connected: true}
		}
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		start := time.Now()
		if err := p.Ping(pctx); err != nil {
			healthy = false
			return probeResult{Connected: false, Error: err.Error()}
		}
		return probeResult{
			Connected: true,
			LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}

	rpc := probe(s.opts.RPCHealth)
	db := probe(s.opts.DBHealth)

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":   status,
		"rpc":      rpc,
		"database": db,
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

var _ Pinger = (minter.HealthChecker)(nil)
