package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/apperrors"
	"github.com/code-sleuth/ike-tube/internal/manager/channels"
	"github.com/code-sleuth/ike-tube/internal/manager/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	idempotencyHeader = "Idempotency-Key"
	invalidChannelMsg = "Please enter a valid YouTube channel URL (e.g., https://www.youtube.com/@ChannelName)"
)

// Ingester indexes a channel at most once per idempotency key at a time.
type Ingester interface {
	IngestOnce(ctx context.Context, key, reference string) (models.IngestResult, error)
}

// Answerer answers a question about an indexed channel.
type Answerer interface {
	Answer(ctx context.Context, reference, question string, history []models.Message) (*models.StructuredInsight, error)
}

type IngestRequest struct {
	ChannelInput string `json:"channelInput" binding:"required"`
}

type IngestResponse struct {
	Namespace               models.Namespace `json:"namespace"`
	NamespaceAlreadyExisted bool             `json:"namespaceAlreadyExisted"`
}

type AskRequest struct {
	ChannelInput string           `json:"channelInput" binding:"required"`
	Question     string           `json:"question"     binding:"required"`
	History      []models.Message `json:"history"      binding:"omitempty,dive"`
}

// Handler serves the ingestion and query endpoints.
type Handler struct {
	ingester Ingester
	answerer Answerer
	logger   zerolog.Logger
}

func NewHandler(ingester Ingester, answerer Answerer, logger zerolog.Logger) *Handler {
	return &Handler{
		ingester: ingester,
		answerer: answerer,
		logger:   logger,
	}
}

// Ingest handles POST /api/ingest.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}
	if !channels.IsValidChannelURL(req.ChannelInput) {
		respondError(c, apperrors.New(apperrors.KindInput, invalidChannelMsg))
		return
	}
	reference := channels.CleanChannelURL(req.ChannelInput)
	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))

	result, err := h.ingester.IngestOnce(c.Request.Context(), key, reference)
	if err != nil {
		h.fail(c, err, "Ingestion failed")
		return
	}

	respond(c, http.StatusOK, IngestResponse{
		Namespace:               result.Namespace,
		NamespaceAlreadyExisted: result.NamespaceAlreadyExisted,
	})
}

// Ask handles POST /api/ask.
func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	insight, err := h.answerer.Answer(c.Request.Context(), req.ChannelInput, req.Question, req.History)
	if err != nil {
		h.fail(c, err, "Query failed")
		return
	}

	respond(c, http.StatusOK, insight)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	classified := apperrors.From(err)
	event := h.logger.Warn()
	if classified.Kind == apperrors.KindInternal || classified.Kind == apperrors.KindTransientProviderError {
		event = h.logger.Error()
	}
	event.
		Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("code", classified.Code).
		Msg(msg)
	respondError(c, classified)
}

func bindingError(err error) *apperrors.Error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.New(apperrors.KindInput, "Request body must be valid JSON.")
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fieldError := range validationErrs {
		switch fieldError.Tag() {
		case "required":
			fields = append(fields, fieldError.Field()+" is required")
		case "oneof":
			fields = append(fields, fieldError.Field()+" must be one of "+fieldError.Param())
		default:
			fields = append(fields, fieldError.Field()+" is invalid")
		}
	}
	return apperrors.New(apperrors.KindInput, strings.Join(fields, "; "))
}
