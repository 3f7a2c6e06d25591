package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// ExamHandler handles exam specification drafts and their submission.
type ExamHandler struct {
	specService *service.SpecService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(specService *service.SpecService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		specService: specService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// CreateDraft godoc
// POST /api/v1/exam-specs
// Starts a new specification, THEORY_TOPIC with 10 questions unless a type is given.
func (h *ExamHandler) CreateDraft(c *gin.Context) {
	var req model.CreateDraftRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	draft, err := h.specService.Create(req.Type)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"draft": draft})
}

// GetDraft godoc
// GET /api/v1/exam-specs/:id
func (h *ExamHandler) GetDraft(c *gin.Context) {
	draft, err := h.specService.Get(c.Param("id"))
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// SetType godoc
// PUT /api/v1/exam-specs/:id/type
// Switching type clears the theme selection and resets count and name.
func (h *ExamHandler) SetType(c *gin.Context) {
	var req model.SetExamTypeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	draft, err := h.specService.SetType(c.Param("id"), req.Type)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// UpdateDraft godoc
// PATCH /api/v1/exam-specs/:id
func (h *ExamHandler) UpdateDraft(c *gin.Context) {
	var req model.UpdateDraftRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	draft, err := h.specService.Update(c.Param("id"), req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// ToggleTheme godoc
// POST /api/v1/exam-specs/:id/themes/:theme_id/toggle
func (h *ExamHandler) ToggleTheme(c *gin.Context) {
	draft, err := h.specService.ToggleTheme(c.Param("id"), c.Param("theme_id"))
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// SelectThemePart godoc
// POST /api/v1/exam-specs/:id/themes/select-part
// Replaces the selection with every theme of the given part.
func (h *ExamHandler) SelectThemePart(c *gin.Context) {
	var req model.SelectThemePartRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	draft, err := h.specService.SelectPart(c.Request.Context(), c.Param("id"), req.Part)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// ValidateDraft godoc
// POST /api/v1/exam-specs/:id/validate
func (h *ExamHandler) ValidateDraft(c *gin.Context) {
	if err := h.specService.Validate(c.Param("id")); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": true})
}

// SubmitDraft godoc
// POST /api/v1/exam-specs/:id/submit
// Generates the exam, starts an attempt and opens its session. The draft is consumed.
func (h *ExamHandler) SubmitDraft(c *gin.Context) {
	sess, err := h.specService.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Debug().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("draft_id", c.Param("id")).
			Msg("Draft submission rejected")
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess.Snapshot()})
}

// DiscardDraft godoc
// DELETE /api/v1/exam-specs/:id
func (h *ExamHandler) DiscardDraft(c *gin.Context) {
	if err := h.specService.Discard(c.Param("id")); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"discarded": true})
}
