package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/http/response"
	"github.com/pylearnhq/pylearn-backend/internal/requestdata"
	"github.com/pylearnhq/pylearn-backend/internal/services"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type LearningHandler struct {
	attemptService        services.AttemptService
	masteryService        services.MasteryService
	recommendationService services.RecommendationService
}

func NewLearningHandler(
	attemptService services.AttemptService,
	masteryService services.MasteryService,
	recommendationService services.RecommendationService,
) *LearningHandler {
	return &LearningHandler{
		attemptService:        attemptService,
		masteryService:        masteryService,
		recommendationService: recommendationService,
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing identity"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func attemptView(attempt *types.LessonAttempt) gin.H {
	return gin.H{
		"attempt_id":       attempt.ID,
		"lesson_id":        attempt.LessonID,
		"status":           attempt.Status,
		"dwell_seconds":    attempt.DwellSeconds,
		"challenge_passed": attempt.ChallengePassed,
		"anti_fake_passed": attempt.AntiFakePassed,
		"created_at":       attempt.CreatedAt,
		"updated_at":       attempt.UpdatedAt,
	}
}

func (lh *LearningHandler) StartAttempt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid lesson id"))
		return
	}

	var req struct {
		DwellSeconds int                    `json:"dwell_seconds"`
		Metadata     map[string]interface{} `json:"metadata"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&req)

	attempt, err := lh.attemptService.Start(c.Request.Context(), userID, lessonID, req.DwellSeconds, req.Metadata)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, attemptView(attempt))
}

func (lh *LearningHandler) Heartbeat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid lesson id"))
		return
	}

	var req struct {
		AttemptID    uuid.UUID              `json:"attempt_id"`
		DwellSeconds int                    `json:"dwell_seconds"`
		Metadata     map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid request body"))
		return
	}
	if req.AttemptID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("attempt_id is required"))
		return
	}

	attempt, err := lh.attemptService.Heartbeat(c.Request.Context(), userID, lessonID, req.AttemptID, req.DwellSeconds, req.Metadata)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, attemptView(attempt))
}

func (lh *LearningHandler) ModuleGates(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var courseID *uuid.UUID
	if raw := c.Query("course_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid course id"))
			return
		}
		courseID = &parsed
	}

	states, err := lh.masteryService.ModuleGateStates(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, states)
}

func (lh *LearningHandler) Recommendation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rec, err := lh.recommendationService.RecommendNextLesson(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, rec)
}
