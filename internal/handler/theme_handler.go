package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// ThemeHandler serves the read-only theme directory.
type ThemeHandler struct {
	themeService *service.ThemeService
}

// NewThemeHandler creates a new ThemeHandler.
func NewThemeHandler(themeService *service.ThemeService) *ThemeHandler {
	return &ThemeHandler{themeService: themeService}
}

// ListThemes godoc
// GET /api/v1/themes?part=GENERAL|SPECIFIC
func (h *ThemeHandler) ListThemes(c *gin.Context) {
	var (
		themes []model.Theme
		err    error
	)
	switch part := model.ThemePart(c.Query("part")); part {
	case "":
		themes, err = h.themeService.List(c.Request.Context())
	case model.ThemePartGeneral, model.ThemePartSpecific:
		themes, err = h.themeService.ListByPart(c.Request.Context(), part)
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"part": "part must be GENERAL or SPECIFIC"})
		return
	}
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"themes": themes})
}
