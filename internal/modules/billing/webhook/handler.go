package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPayloadBytes matches the payment provider's documented event size cap.
const maxPayloadBytes = 65536

// EventParser verifies and decodes a raw delivery.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (Event, error)
}

// EventHandler applies a decoded event.
type EventHandler interface {
	Handle(ctx context.Context, ev Event) error
}

type Handler struct {
	parser     EventParser
	reconciler EventHandler
	log        *zap.Logger
}

func NewHandler(parser EventParser, reconciler EventHandler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{parser: parser, reconciler: reconciler, log: logger.Named("webhook")}
}

// RegisterRoutes mounts the unauthenticated provider callback.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/billing/webhook", h.receive)
}

func (h *Handler) receive(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		response.BadRequest(c, "unreadable payload")
		return
	}
	if len(payload) > maxPayloadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "payload too large", nil)
		return
	}

	ev, err := h.parser.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, ErrIgnored):
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	case err != nil:
		h.log.Warn("webhook rejected", zap.Error(err))
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.reconciler.Handle(c.Request.Context(), ev); err != nil {
		switch {
		case errors.Is(err, ErrIgnored):
			c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		case errors.Is(err, ErrValidation):
			h.log.Warn("webhook payload invalid", zap.String("event_id", ev.EventID()), zap.String("type", ev.Kind()), zap.Error(err))
			response.BadRequest(c, err.Error())
		default:
			h.log.Error("webhook handling failed", zap.String("event_id", ev.EventID()), zap.String("type", ev.Kind()), zap.Error(err))
			response.InternalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
