package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/application/command"
	"github.com/skilltrek/skilltrek-hub/internal/application/query"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "skilltrek-hub",
		"status":  "running",
	})
}

// handleHealth checks all registered dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.HealthTargets))
	healthy := true

	for name, target := range s.deps.HealthTargets {
		if err := target.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	s.mu.RLock()
	uptime := time.Since(s.startedAt)
	s.mu.RUnlock()

	writeJSON(w, status, map[string]interface{}{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(uptime.Seconds()),
		"timestamp":      time.Now().UTC(),
	})
}

// handleReady reports readiness (dependencies reachable).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for name, target := range s.deps.HealthTargets {
		if err := target.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed",
				logger.String("dependency", name),
				logger.Err(err),
			)
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Dependency unavailable: "+name)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports liveness (process responsive).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerUserRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// handleRegisterUser creates a new user profile.
// POST /api/v1/users
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		AvatarRef: req.AvatarRef,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":    result.UserID,
		"email":      result.Email,
		"username":   result.Username,
		"total_xp":   result.TotalXP,
		"level":      result.Level,
		"created_at": result.CreatedAt,
	})
}

// handleGetProgression returns a user's level and XP state.
// GET /api/v1/users/{id}/progression
func (s *Server) handleGetProgression(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	result, err := s.deps.GetProgression.Handle(r.Context(), query.GetProgressionQuery{
		UserID: userID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUserActivities returns a user's own activity entries.
// GET /api/v1/users/{id}/activities?skip=&limit=
func (s *Server) handleGetUserActivities(w http.ResponseWriter, r *http.Request) {
	s.serveFeedPage(w, r)
}

// handleGetFeed returns a user's activity feed.
// GET /api/v1/users/{id}/feed?skip=&limit=
//
// The feed currently shows the user's own entries only, so this is an alias
// of the activities endpoint. It stays a separate route so a follow graph
// can widen it later without an API change.
func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	s.serveFeedPage(w, r)
}

func (s *Server) serveFeedPage(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	skip := getQueryParamInt(r, "skip", 0)
	limit := getQueryParamInt(r, "limit", 0)

	result, err := s.deps.GetActivityFeed.Handle(r.Context(), query.GetActivityFeedQuery{
		UserID: userID,
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetXPHistory returns the bucketed XP chart for one period type.
// GET /api/v1/users/{id}/xp-history?period=monthly&limit=12
func (s *Server) handleGetXPHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	period := getQueryParam(r, "period", string(timeutil.PeriodMonthly))
	limit := getQueryParamInt(r, "limit", 0)

	result, err := s.deps.GetXPHistory.Handle(r.Context(), query.GetXPHistoryQuery{
		UserID: userID,
		Period: period,
		Limit:  limit,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type completeSectionRequest struct {
	UserID string `json:"user_id"`
}

// handleCompleteSection records a section completion and awards XP.
// POST /api/v1/courses/{courseID}/sections/{sectionID}/complete
func (s *Server) handleCompleteSection(w http.ResponseWriter, r *http.Request) {
	var req completeSectionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.CompleteSection.Handle(r.Context(), command.CompleteSectionCommand{
		UserID:    req.UserID,
		CourseID:  r.PathValue("courseID"),
		SectionID: r.PathValue("sectionID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Repeats are not errors: the response carries already_completed so
	// clients can render a no-op without special-casing a status code.
	writeJSON(w, http.StatusOK, result)
}

type completeQuizRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

// handleCompleteQuiz records a passed quiz and awards XP.
// POST /api/v1/quizzes/{quizID}/complete
func (s *Server) handleCompleteQuiz(w http.ResponseWriter, r *http.Request) {
	var req completeQuizRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.CompleteQuiz.Handle(r.Context(), command.CompleteQuizCommand{
		UserID:    req.UserID,
		QuizID:    r.PathValue("quizID"),
		QuizTitle: req.Title,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT & LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type toggleLikeRequest struct {
	UserID string `json:"user_id"`
}

// handleToggleLike flips a like on an activity.
// POST /api/v1/activities/{id}/like
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var req toggleLikeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.ToggleLike.Handle(r.Context(), command.ToggleLikeCommand{
		UserID:     req.UserID,
		ActivityID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activity_id": result.ActivityID,
		"liked":       result.Liked,
		"like_count":  result.LikeCount,
	})
}

type addCommentRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// handleAddComment appends a comment to an activity.
// POST /api/v1/activities/{id}/comments
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.AddComment.Handle(r.Context(), command.AddCommentCommand{
		UserID:     req.UserID,
		ActivityID: r.PathValue("id"),
		Text:       req.Text,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"activity_id":   result.ActivityID,
		"comment_count": result.CommentCount,
		"comment":       result.Comment,
	})
}

// handleGetLeaderboard returns the XP ranking.
// GET /api/v1/leaderboard?limit=20
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 0)

	result, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		Limit: limit,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case shared.IsDuplicateEvent(err):
		writeJSONError(w, http.StatusConflict, "duplicate_event", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeJSONBody decodes a JSON request body, writing a 400 on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return err
	}
	return nil
}
