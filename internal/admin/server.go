package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/store"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MB

	defaultPageLimit = 50
	maxPageLimit     = 500
)

// ReconcileRequester triggers reconciliation for one chain.
type ReconcileRequester interface {
	ReconcileAny(ctx context.Context, chainID model.ChainID, requeue bool) (any, error)
	HasChain(chainID model.ChainID) bool
}

// HealthProvider returns health snapshots as JSON-encodable data.
type HealthProvider interface {
	HealthSnapshots() any
}

// QueueStatsProvider reports airdrop queue depth.
type QueueStatsProvider interface {
	Stats(ctx context.Context) (store.QueueStats, error)
}

type AirdropEnqueuer interface {
	EnqueueAirdrop(ctx context.Context, wallet string, chainID model.ChainID) error
}

// Server provides an HTTP-based admin API for operational management.
type Server struct {
	ledger         store.AirdropLedgerRepository
	tokenHash      []byte
	reconcileReq   ReconcileRequester
	healthProvider HealthProvider
	queueStats     QueueStatsProvider
	enqueuer       AirdropEnqueuer
	logger         *slog.Logger
}

// NewServer creates a new admin API server. tokenHash is the bcrypt hash of
// the bearer token; an empty hash rejects every request.
func NewServer(ledger store.AirdropLedgerRepository, tokenHash string, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		ledger:    ledger,
		tokenHash: []byte(tokenHash),
		logger:    logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerOption configures optional dependencies for the admin server.
type ServerOption func(*Server)

func WithReconcileRequester(rr ReconcileRequester) ServerOption {
	return func(s *Server) { s.reconcileReq = rr }
}

func WithHealthProvider(hp HealthProvider) ServerOption {
	return func(s *Server) { s.healthProvider = hp }
}

func WithQueue(q QueueStatsProvider, e AirdropEnqueuer) ServerOption {
	return func(s *Server) {
		s.queueStats = q
		s.enqueuer = e
	}
}

// Handler returns the HTTP handler for the admin API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/v1/health", s.handleHealth)
	mux.HandleFunc("POST /admin/v1/reconcile", s.handleReconcile)
	mux.HandleFunc("GET /admin/v1/airdrops", s.handleListAirdrops)
	mux.HandleFunc("GET /admin/v1/airdrops/queue", s.handleQueueStats)
	mux.HandleFunc("POST /admin/v1/airdrops/requeue", s.handleRequeue)
	return s.authenticate(mux)
}

// authenticate checks "Authorization: Bearer <token>" against the bcrypt hash.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || len(s.tokenHash) == 0 ||
			bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)) != nil {
			s.logger.Warn("admin API unauthorized", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSONBody reads and decodes a JSON request body into v.
// Returns false (and writes an error response) if decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func requireChainQuery(w http.ResponseWriter, r *http.Request) (model.ChainID, bool) {
	raw := r.URL.Query().Get("chain_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "chain_id query param required")
		return 0, false
	}
	chainID, err := model.ParseChainID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return chainID, true
}

func pageParams(r *http.Request) (limit, offset int, ok bool) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		limit = min(n, maxPageLimit)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthProvider == nil {
		writeError(w, http.StatusServiceUnavailable, "health provider not available")
		return
	}
	writeJSON(w, http.StatusOK, s.healthProvider.HealthSnapshots())
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.reconcileReq == nil {
		writeError(w, http.StatusServiceUnavailable, "reconciliation not available")
		return
	}
	chainID, ok := requireChainQuery(w, r)
	if !ok {
		return
	}
	if !s.reconcileReq.HasChain(chainID) {
		writeError(w, http.StatusNotFound, "reconciliation not configured for this chain")
		return
	}
	requeue := r.URL.Query().Get("requeue") == "true"

	result, err := s.reconcileReq.ReconcileAny(r.Context(), chainID, requeue)
	if err != nil {
		s.logger.Error("reconciliation failed", "error", err, "chain", chainID.String())
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type airdropPage struct {
	Items  []model.AirdropEntry `json:"items"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func (s *Server) handleListAirdrops(w http.ResponseWriter, r *http.Request) {
	status := model.AirdropStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status == "" {
		status = model.AirdropQueued
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be QUEUED or COMPLETED")
		return
	}
	limit, offset, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit or offset")
		return
	}

	items, total, err := s.ledger.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		s.logger.Error("list airdrops failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []model.AirdropEntry{}
	}
	writeJSON(w, http.StatusOK, airdropPage{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if s.queueStats == nil {
		writeError(w, http.StatusServiceUnavailable, "queue not available")
		return
	}
	stats, err := s.queueStats.Stats(r.Context())
	if err != nil {
		s.logger.Error("queue stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type requeueRequest struct {
	WalletAddress string        `json:"walletAddress"`
	ChainID       model.ChainID `json:"chainId"`
}

// handleRequeue re-publishes the job of a QUEUED ledger entry. The operator
// is expected to have checked the funding wallet's history first.
func (s *Server) handleRequeue(w http.ResponseWriter, r *http.Request) {
	if s.enqueuer == nil {
		writeError(w, http.StatusServiceUnavailable, "queue not available")
		return
	}
	var req requeueRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := model.ValidateChainID(req.ChainID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	wallet := strings.ToLower(strings.TrimSpace(req.WalletAddress))
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "walletAddress is required")
		return
	}

	ctx := r.Context()
	entry, err := s.ledger.FindQueued(ctx, wallet, req.ChainID)
	if err != nil {
		s.logger.Error("find queued airdrop failed", "error", err, "wallet", wallet)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no QUEUED airdrop for wallet on chain")
		return
	}
	if err := s.enqueuer.EnqueueAirdrop(ctx, entry.WalletAddress, entry.ChainID); err != nil {
		s.logger.Error("requeue airdrop failed", "error", err, "wallet", wallet)
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	if err := s.ledger.TouchQueued(ctx, entry.ID); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("touch requeued airdrop failed", "error", err, "wallet", wallet)
	}

	s.logger.Info("airdrop requeued by operator", "wallet", wallet, "chain", req.ChainID.String())
	writeJSON(w, http.StatusAccepted, entry)
}
