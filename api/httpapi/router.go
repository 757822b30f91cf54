// Package httpapi serves the ops endpoints: health, prometheus metrics and
// a read-only view of the book.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"predex/domain/orderbook"
	"predex/infra/metrics"
)

const maxDepth = 1000

// BookReader is the read side of the order service.
type BookReader interface {
	Snapshot(depth int) orderbook.Snapshot
	MarketView(depth int) orderbook.MarketView
}

type Handler struct {
	book         BookReader
	defaultDepth int
	logger       *log.Entry
}

type levelJSON struct {
	Price    int   `json:"price"`
	Quantity int64 `json:"quantity"`
}

type snapshotJSON struct {
	Ticker  string      `json:"ticker"`
	Version uint64      `json:"version"`
	Bids    []levelJSON `json:"bids"`
	Asks    []levelJSON `json:"asks"`
}

type marketViewJSON struct {
	Ticker  string      `json:"ticker"`
	Version uint64      `json:"version"`
	Yes     []levelJSON `json:"yes"`
	No      []levelJSON `json:"no"`
}

// NewRouter wires the ops routes. gatherer backs /metrics; httpMetrics may
// be nil to leave requests uninstrumented.
func NewRouter(book BookReader, defaultDepth int, gatherer prometheus.Gatherer, httpMetrics *metrics.HTTPMetrics) http.Handler {
	h := &Handler{
		book:         book,
		defaultDepth: defaultDepth,
		logger:       log.WithField("component", "httpapi"),
	}

	r := chi.NewRouter()
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/orderbook", h.GetOrderBook)
	r.Get("/orderbook/view", h.GetMarketView)
	return r
}

// GetOrderBook returns the aggregated ladders, ?depth= levels per side.
func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	depth, ok := h.depth(w, r)
	if !ok {
		return
	}
	snap := h.book.Snapshot(depth)
	h.writeJSON(w, snapshotJSON{
		Ticker:  snap.Ticker,
		Version: snap.Version,
		Bids:    toLevels(snap.Bids),
		Asks:    toLevels(snap.Asks),
	})
}

// GetMarketView returns the book as YES and NO bids.
func (h *Handler) GetMarketView(w http.ResponseWriter, r *http.Request) {
	depth, ok := h.depth(w, r)
	if !ok {
		return
	}
	view := h.book.MarketView(depth)
	h.writeJSON(w, marketViewJSON{
		Ticker:  view.Ticker,
		Version: view.Version,
		Yes:     toLevels(view.Yes),
		No:      toLevels(view.No),
	})
}

func (h *Handler) depth(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("depth")
	if raw == "" {
		return h.defaultDepth, true
	}
	depth, err := strconv.Atoi(raw)
	if err != nil || depth < 0 || depth > maxDepth {
		h.addErrorResponse(w, http.StatusBadRequest, "depth must be an integer between 0 and "+strconv.Itoa(maxDepth))
		return 0, false
	}
	return depth, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Warn("write response")
	}
}

func (h *Handler) addErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.logger.WithField("status", statusCode).Debug(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func toLevels(in []orderbook.Level) []levelJSON {
	out := make([]levelJSON, len(in))
	for i, l := range in {
		out[i] = levelJSON{Price: l.Price, Quantity: l.Quantity}
	}
	return out
}
