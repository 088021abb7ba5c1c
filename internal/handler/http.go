package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pool-ladder/internal/domain"
	"github.com/pool-ladder/internal/service"
	"github.com/pool-ladder/internal/websocket"
)

// Handler provides HTTP handlers for the ladder API
type Handler struct {
	service *service.LadderService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.LadderService, hub *websocket.Hub, logger *slog.Logger) *Handler {
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
		r.Route("/ladders", func(r chi.Router) {
			r.Get("/", h.ListLadders)
			r.Get("/{bracket}/standings", h.GetStandings)
			r.Get("/{bracket}/standings/{playerID}", h.GetPlayerStanding)
		})

		r.Route("/players", func(r chi.Router) {
			r.Post("/", h.RegisterPlayer)

			r.Route("/{playerID}", func(r chi.Router) {
				r.Get("/", h.GetPlayer)
				r.Delete("/", h.RemovePlayer)
				r.Get("/challenges", h.ListPlayerChallenges)
				r.Get("/matches", h.ListPlayerMatches)
				r.Get("/suggestions", h.GetSuggestions)
				r.Get("/eligibility/{defenderID}", h.CheckEligibility)
			})
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Post("/", h.CreateChallenge)

			r.Route("/{challengeID}", func(r chi.Router) {
				r.Get("/", h.GetChallenge)
				r.Post("/accept", h.respondHandler("accept"))
				r.Post("/decline", h.respondHandler("decline"))
				r.Post("/counter", h.respondHandler("counter"))
				r.Post("/cancel", h.CancelChallenge)
				r.Post("/result", h.ReportResult)
			})
		})

		r.Post("/suggestions/feedback", h.RecordSuggestionFeedback)

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

// writeServiceError maps domain errors to HTTP statuses. Rule and lifecycle
// rejections keep their authored messages; everything else is opaque.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	var ineligible *domain.IneligibleChallengeError
	var stateErr *domain.ChallengeStateError

	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &ineligible):
		h.writeError(w, http.StatusConflict, err)
	case errors.As(err, &stateErr):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrConcurrencyConflict):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrBracketFrozen):
		h.writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error(logMsg, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	subscribers := make(map[string]int, len(domain.Brackets))
	for _, bracket := range domain.Brackets {
		subscribers[string(bracket)] = h.hub.GetSubscriberCount(string(bracket))
	}
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
		"subscribers":       subscribers,
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

// ListLadders returns the known ladder brackets with their player counts
func (h *Handler) ListLadders(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.ListBrackets(r.Context()))
}

// GetPlayerStanding returns one player's standing within a bracket
func (h *Handler) GetPlayerStanding(w http.ResponseWriter, r *http.Request) {
	bracket := domain.Bracket(chi.URLParam(r, "bracket"))
	if !bracket.Valid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	playerID := chi.URLParam(r, "playerID")

	entry, err := h.service.GetPlayerStanding(r.Context(), bracket, playerID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get player standing")
		return
	}
	h.writeSuccess(w, entry)
}

// RemovePlayer takes a player off their ladder
func (h *Handler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	if err := h.service.RemovePlayer(r.Context(), playerID); err != nil {
		h.writeServiceError(w, err, "failed to remove player")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "removed"})
}

// GetStandings returns a bracket's standings top-down
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	bracket := domain.Bracket(chi.URLParam(r, "bracket"))
	if !bracket.Valid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.service.GetStandings(r.Context(), bracket)
	if err != nil {
		h.writeServiceError(w, err, "failed to get standings")
		return
	}
	h.writeSuccess(w, entries)
}

// RegisterPlayer adds a player to the bottom of a bracket
func (h *Handler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var player domain.Player
	if err := json.NewDecoder(r.Body).Decode(&player); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	registered, err := h.service.RegisterPlayer(r.Context(), player)
	if err != nil {
		h.writeServiceError(w, err, "failed to register player")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    registered,
	})
}

// GetPlayer returns a player by ID
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	player, err := h.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get player")
		return
	}
	h.writeSuccess(w, player)
}

// ListPlayerChallenges returns a player's challenges, most recent first
func (h *Handler) ListPlayerChallenges(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	challenges, err := h.service.ListChallengesByPlayer(r.Context(), playerID, limit)
	if err != nil {
		h.writeServiceError(w, err, "failed to list challenges")
		return
	}
	h.writeSuccess(w, challenges)
}

// ListPlayerMatches returns a player's match history
func (h *Handler) ListPlayerMatches(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	matches, err := h.service.ListMatchesByPlayer(r.Context(), playerID, limit)
	if err != nil {
		h.writeServiceError(w, err, "failed to list matches")
		return
	}
	h.writeSuccess(w, matches)
}

// GetSuggestions runs Smart Match for a player
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	suggestions, err := h.service.SuggestOpponents(r.Context(), playerID)
	if err != nil {
		h.writeServiceError(w, err, "failed to build suggestions")
		return
	}
	h.writeSuccess(w, suggestions)
}

// CheckEligibility evaluates a challenger/defender pair without side effects
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	challengerID := chi.URLParam(r, "playerID")
	defenderID := chi.URLParam(r, "defenderID")

	elig, err := h.service.CheckEligibility(r.Context(), challengerID, defenderID)
	if err != nil {
		h.writeServiceError(w, err, "failed to check eligibility")
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"allowed":       elig.Allowed,
		"allowed_types": elig.AllowedTypes,
		"rule":          elig.Rule,
		"reason":        elig.Reason,
	})
}

// CreateChallenge opens a new challenge
func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if req.ChallengerID == "" || req.DefenderID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	ch, err := h.service.CreateChallenge(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to create challenge")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    ch,
	})
}

// GetChallenge returns a challenge by ID
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")

	ch, err := h.service.GetChallenge(r.Context(), challengeID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get challenge")
		return
	}
	h.writeSuccess(w, ch)
}

// respondHandler builds the accept, decline and counter handlers
func (h *Handler) respondHandler(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		challengeID := chi.URLParam(r, "challengeID")

		var req domain.RespondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
		if req.PlayerID == "" {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}

		ch, err := h.service.Respond(r.Context(), challengeID, action, req)
		if err != nil {
			h.writeServiceError(w, err, "failed to respond to challenge")
			return
		}
		h.writeSuccess(w, ch)
	}
}

// CancelChallenge withdraws an open challenge
func (h *Handler) CancelChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")

	var req domain.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if req.PlayerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	ch, err := h.service.Cancel(r.Context(), challengeID, req.PlayerID)
	if err != nil {
		h.writeServiceError(w, err, "failed to cancel challenge")
		return
	}
	h.writeSuccess(w, ch)
}

// ReportResult completes a confirmed challenge with its outcome
func (h *Handler) ReportResult(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")

	var req domain.ReportResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	req.ChallengeID = challengeID
	if req.WinnerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.ReportResult(r.Context(), req); err != nil {
		h.writeServiceError(w, err, "failed to report result")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "applied"})
}

// RecordSuggestionFeedback stores the outcome of a surfaced suggestion
func (h *Handler) RecordSuggestionFeedback(w http.ResponseWriter, r *http.Request) {
	var fb domain.SuggestionFeedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.RecordSuggestionOutcome(r.Context(), fb); err != nil {
		h.writeServiceError(w, err, "failed to record suggestion feedback")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "recorded"})
}
