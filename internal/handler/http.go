package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rankwatch/internal/domain"
	"github.com/rankwatch/internal/osu"
	"github.com/rankwatch/internal/service"
	"github.com/rankwatch/internal/websocket"
)

// Handler provides HTTP handlers for the tracker API
type Handler struct {
	service *service.TrackerService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.TrackerService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/boards", h.ListBoards)

		r.Route("/rankings/{mode}", func(r chi.Router) {
			// Live pass-throughs to the osu! API
			r.Get("/country", h.GetCountryRankings)
			r.Get("/charts", h.GetChartRankings)

			// Mirrored boards
			r.Route("/{kind}", func(r chi.Router) {
				r.Get("/", h.GetBoard)
				r.Get("/range", h.GetRange)
				r.Get("/stats", h.GetBoardStats)
				r.Get("/events", h.GetRecentEvents)
				r.Get("/around/{userID}", h.GetAroundPlayer)
				r.Get("/player/{userID}", h.GetPlayerRank)
				r.Get("/player/{userID}/history", h.GetPlayerHistory)
			})
		})

		// News pass-through
		r.Get("/news", h.GetNews)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps service errors to HTTP responses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	default:
		var apiErr *osu.APIError
		if errors.As(err, &apiErr) {
			h.logger.Error("upstream api error", "status", apiErr.StatusCode, "error", apiErr)
			h.writeError(w, http.StatusBadGateway, apiErr)
			return
		}
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// queryInt reads an integer query parameter, falling back to a default
func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

// pathUserID parses the userID path parameter
func pathUserID(r *http.Request) (uint32, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidRequest
	}
	return uint32(id), nil
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// ListBoards returns every configured board and its mirror state
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.service.ListBoards(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, boards)
}

// GetBoard returns the top entries of a mirrored board
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")
	limit := queryInt(r, "limit", 0)

	entries, err := h.service.GetBoard(r.Context(), mode, kind, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetRange returns mirrored entries within a rank range
func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")
	start := queryInt(r, "start", 0)
	end := queryInt(r, "end", start+9)

	entries, err := h.service.GetRange(r.Context(), mode, kind, start, end)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetBoardStats returns summary statistics for a mirrored board
func (h *Handler) GetBoardStats(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")

	stats, err := h.service.GetBoardStats(r.Context(), mode, kind)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, stats)
}

// GetRecentEvents returns the latest rank change events on a board
func (h *Handler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")
	limit := queryInt(r, "limit", 0)

	events, err := h.service.GetRecentEvents(r.Context(), mode, kind, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, events)
}

// GetAroundPlayer returns mirrored entries around a player's rank
func (h *Handler) GetAroundPlayer(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")
	userID, err := pathUserID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	count := queryInt(r, "range", 5)

	entries, err := h.service.GetAroundPlayer(r.Context(), mode, kind, userID, count)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetPlayerRank returns a player's mirrored rank on a board
func (h *Handler) GetPlayerRank(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")
	userID, err := pathUserID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.service.GetPlayerRank(r.Context(), mode, kind, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, entry)
}

// GetPlayerHistory returns a player's archived rank history on a board
func (h *Handler) GetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	kind := chi.URLParam(r, "kind")
	userID, err := pathUserID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := queryInt(r, "limit", 0)

	history, err := h.service.GetPlayerHistory(r.Context(), mode, kind, userID, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, history)
}

// GetCountryRankings returns the live per-country ranking for a mode
func (h *Handler) GetCountryRankings(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")

	rankings, err := h.service.CountryRankings(r.Context(), mode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, rankings)
}

// GetChartRankings returns the live spotlight chart for a mode
func (h *Handler) GetChartRankings(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")

	chart, err := h.service.ChartRankings(r.Context(), mode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, chart)
}

// GetNews returns the live news listing
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	news, err := h.service.News(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, news)
}
