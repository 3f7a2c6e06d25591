package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// SessionHandler exposes the exam session controller over HTTP.
// Every successful action answers with the session snapshot.
type SessionHandler struct {
	sessionService *service.ExamSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// OpenSession godoc
// POST /api/v1/sessions/:attempt_id/open
// Resumes an attempt, seeding answers already stored remotely.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	sess, err := h.sessionService.Open(c.Request.Context(), c.Param("attempt_id"))
	if err != nil {
		status, code := classify(err)
		if sess != nil {
			response.FailWithData(c, status, code, gin.H{"session": sess.Snapshot()})
			return
		}
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// GetSession godoc
// GET /api/v1/sessions/:attempt_id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// Next godoc
// POST /api/v1/sessions/:attempt_id/next
func (h *SessionHandler) Next(c *gin.Context) {
	h.act(c, (*service.Session).GoNext)
}

// Previous godoc
// POST /api/v1/sessions/:attempt_id/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	h.act(c, (*service.Session).GoPrevious)
}

// Jump godoc
// POST /api/v1/sessions/:attempt_id/jump
func (h *SessionHandler) Jump(c *gin.Context) {
	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(s *service.Session) error { return s.JumpTo(*req.Index) })
}

// SetInstantFeedback godoc
// PUT /api/v1/sessions/:attempt_id/instant-feedback
func (h *SessionHandler) SetInstantFeedback(c *gin.Context) {
	var req model.InstantFeedbackRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(s *service.Session) error { return s.ToggleInstantFeedback(*req.Enabled) })
}

// SelectAnswer godoc
// POST /api/v1/sessions/:attempt_id/answers
// Selecting the choice already held clears it. The remote write is not awaited.
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, ok := h.session(c)
	if !ok {
		return
	}
	change, err := sess.SelectAnswer(req.QuestionID, *req.ChoiceIndex)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"change": change, "session": sess.Snapshot()})
}

// ClearAnswer godoc
// DELETE /api/v1/sessions/:attempt_id/answers/:question_id
func (h *SessionHandler) ClearAnswer(c *gin.Context) {
	questionID := c.Param("question_id")
	h.act(c, func(s *service.Session) error { return s.ClearAnswer(questionID) })
}

// FinishSession godoc
// POST /api/v1/sessions/:attempt_id/finish
// On failure the session stays open and the call can be repeated.
func (h *SessionHandler) FinishSession(c *gin.Context) {
	result, err := h.sessionService.Finish(c.Request.Context(), c.Param("attempt_id"))
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	sess, err := h.sessionService.Get(c.Param("attempt_id"))
	if err != nil {
		failWith(c, err)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) act(c *gin.Context, fn func(*service.Session) error) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		status, code := classify(err)
		response.FailWithData(c, status, code, gin.H{"session": sess.Snapshot()})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}
