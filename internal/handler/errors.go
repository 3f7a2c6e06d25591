package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// classify maps a service error onto an HTTP status and API error code.
func classify(err error) (int, response.ErrCode) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Code {
		case service.CodeNoThemeSelected:
			return http.StatusUnprocessableEntity, response.ErrNoThemeSelected
		case service.CodeInvalidCount:
			return http.StatusUnprocessableEntity, response.ErrInvalidCount
		default:
			return http.StatusUnprocessableEntity, response.ErrInvalidType
		}
	}

	var remoteErr *examapi.RemoteError
	if errors.As(err, &remoteErr) {
		switch {
		case errors.Is(err, examapi.ErrServiceUnavailable):
			return http.StatusServiceUnavailable, response.ErrServiceUnavailable
		case remoteErr.NotFound():
			return http.StatusNotFound, response.ErrNotFound
		default:
			return http.StatusBadGateway, response.ErrRemote
		}
	}

	switch {
	case errors.Is(err, service.ErrIndexOutOfRange):
		return http.StatusBadRequest, response.ErrIndexOutOfRange
	case errors.Is(err, service.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, service.ErrInvalidChoice):
		return http.StatusBadRequest, response.ErrInvalidChoice
	case errors.Is(err, service.ErrDraftNotFound):
		return http.StatusNotFound, response.ErrDraftNotFound
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, service.ErrSessionNotReady):
		return http.StatusConflict, response.ErrSessionNotReady
	case errors.Is(err, service.ErrFinishInProgress):
		return http.StatusConflict, response.ErrFinishInProgress
	case errors.Is(err, service.ErrThemeSelectionDisabled):
		return http.StatusConflict, response.ErrThemeSelectionDisabled
	case errors.Is(err, service.ErrSpecConsumed):
		return http.StatusConflict, response.ErrSpecConsumed
	case errors.Is(err, service.ErrAttemptFinished):
		return http.StatusConflict, response.ErrAttemptFinished
	case errors.Is(err, service.ErrEmptyExam):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failWith writes err as an error envelope. Remote rejections carry the store's detail.
func failWith(c *gin.Context, err error) {
	status, code := classify(err)

	var remoteErr *examapi.RemoteError
	if code == response.ErrRemote && errors.As(err, &remoteErr) && remoteErr.Message != "" {
		response.FailWithFields(c, status, code, map[string]string{"detail": remoteErr.Message})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		response.FailWithFields(c, status, code, map[string]string{validationErr.Field: response.GetMessage(code)})
		return
	}
	response.Fail(c, status, code)
}
