package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/http/response"
	"github.com/pylearnhq/pylearn-backend/internal/services"
)

type ProgressHandler struct {
	completionService services.CompletionService
	submissionService services.SubmissionService
}

func NewProgressHandler(
	completionService services.CompletionService,
	submissionService services.SubmissionService,
) *ProgressHandler {
	return &ProgressHandler{
		completionService: completionService,
		submissionService: submissionService,
	}
}

func (ph *ProgressHandler) CompleteLesson(c *gin.Context) {
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
		QuizScore    *int       `json:"quiz_score"`
		AttemptID    *uuid.UUID `json:"attempt_id"`
		DwellSeconds int        `json:"dwell_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid request body"))
		return
	}

	result, err := ph.completionService.CompleteLesson(c.Request.Context(), userID, lessonID, services.CompleteLessonInput{
		QuizScore:    req.QuizScore,
		AttemptID:    req.AttemptID,
		DwellSeconds: req.DwellSeconds,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

func (ph *ProgressHandler) RecordSubmission(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid challenge id"))
		return
	}

	var req struct {
		Code     string `json:"code"`
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exit_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("invalid request body"))
		return
	}

	submission, err := ph.submissionService.RecordSubmission(c.Request.Context(), userID, challengeID, services.RecordSubmissionInput{
		Code:     req.Code,
		Stdout:   req.Stdout,
		Stderr:   req.Stderr,
		ExitCode: req.ExitCode,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"submission_id": submission.ID,
		"passed":        submission.Passed,
		"output":        submission.Output,
		"created_at":    submission.CreatedAt,
	})
}
