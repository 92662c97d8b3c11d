// Package api serves the listener's operational HTTP endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/health"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/storage"
)

// NewRouter routes /health, /metrics and the detection journal queries.
// A nil store leaves the /detections routes unregistered.
func NewRouter(gatherer prometheus.Gatherer, status *health.Status, store storage.DetectionStore, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.Handle("/health", status).Methods(http.MethodGet)
	router.Handle("/metrics", observability.Handler(gatherer)).Methods(http.MethodGet)

	if store != nil {
		h := &detectionHandler{store: store, logger: logger}
		router.HandleFunc("/detections", h.byTimeRange).Methods(http.MethodGet)
		router.HandleFunc("/detections/{account}", h.byAccount).Methods(http.MethodGet)
	}
	return router
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

type detectionHandler struct {
	store  storage.DetectionStore
	logger *zap.Logger
}

// byAccount answers GET /detections/{account}.
func (h *detectionHandler) byAccount(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	detections, err := h.store.GetByAccount(r.Context(), account)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(detections))
}

// byTimeRange answers GET /detections?from=<ms>&to=<ms>. Missing bounds are open.
func (h *detectionHandler) byTimeRange(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	to, err := queryInt(r, "to", time.Now().UnixMilli())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if from > to {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from is after to"})
		return
	}

	detections, err := h.store.GetByTimeRange(r.Context(), from, to)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(detections))
}

func (h *detectionHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	h.logger.Warn("detection query failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

type detectionResponse struct {
	DetectionID string `json:"detection_id"`
	Protocol    string `json:"protocol"`
	Account     string `json:"account"`
	MintA       string `json:"mint_a"`
	MintB       string `json:"mint_b"`
	Slot        int64  `json:"slot"`
	DetectedAt  int64  `json:"detected_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(detections []*domain.Detection) []detectionResponse {
	out := make([]detectionResponse, 0, len(detections))
	for _, d := range detections {
		out = append(out, detectionResponse{
			DetectionID: d.DetectionID,
			Protocol:    string(d.Protocol),
			Account:     d.Account,
			MintA:       d.MintA,
			MintB:       d.MintB,
			Slot:        d.Slot,
			DetectedAt:  d.DetectedAt,
		})
	}
	return out
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(key + " must be unix milliseconds")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
