package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

const healthPingTimeout = 2 * time.Second

// OutboxBacklog reports how many answer writes are waiting in the outbox.
type OutboxBacklog interface {
	Len(ctx context.Context) (int64, error)
}

// SystemHandler reports process health.
type SystemHandler struct {
	rdb            *redis.Client
	sessionService *service.ExamSessionService
	dispatch       string
	outbox         OutboxBacklog
	startTime      time.Time
	log            zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, sessionService *service.ExamSessionService, dispatch string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:            rdb,
		sessionService: sessionService,
		dispatch:       dispatch,
		startTime:      time.Now(),
		log:            log.With().Str("component", "system_handler").Logger(),
	}
}

// WithOutbox adds the outbox backlog to the health report.
func (h *SystemHandler) WithOutbox(outbox OutboxBacklog) *SystemHandler {
	h.outbox = outbox
	return h
}

type healthStatus struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	Redis          string `json:"redis"`
	AnswerDispatch string `json:"answer_dispatch"`
	OutboxPending  *int64 `json:"outbox_pending,omitempty"`
	ActiveSessions int    `json:"active_sessions"`
	Goroutines     int    `json:"goroutines"`
}

// Health godoc
// GET /health
// Redis is optional in direct dispatch mode, so a failed ping degrades but does not fail.
func (h *SystemHandler) Health(c *gin.Context) {
	status := healthStatus{
		Status:         "ok",
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Redis:          "disabled",
		AnswerDispatch: h.dispatch,
		ActiveSessions: h.sessionService.Active(),
		Goroutines:     runtime.NumGoroutine(),
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			status.Redis = "down"
			status.Status = "degraded"
		} else {
			status.Redis = "up"
		}
	}

	if h.outbox != nil && status.Redis == "up" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if n, err := h.outbox.Len(ctx); err == nil {
			status.OutboxPending = &n
		}
	}

	response.Success(c, http.StatusOK, status)
}
