package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eventscan/internal/logging"
	"eventscan/internal/metrics"

	"github.com/rs/zerolog"
)

// Trigger is the scheduler payload. ReferenceTime overrides the clock.
type Trigger struct {
	ReferenceTime *time.Time `json:"referenceTime,omitempty"`
}

// Invocation describes the execution context of one trigger.
type Invocation struct {
	RequestID string
	Deadline  time.Time
}

type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler is the run entry point. It always answers with a Response.
type Handler struct {
	coordinator *Coordinator
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewHandler(coordinator *Coordinator, logger *zerolog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		logger:      logging.Component(logger, "handler"),
		now:         time.Now,
	}
}

func (h *Handler) Handle(ctx context.Context, trigger Trigger, inv Invocation) (resp Response) {
	start := time.Now()
	logger := h.logger.With().Str("request_id", inv.RequestID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Run panicked")
			resp = failure(fmt.Sprint(r))
		}
		outcome := "success"
		if resp.StatusCode != http.StatusOK {
			outcome = "failure"
		}
		metrics.ObserveRun(outcome, time.Since(start))
	}()

	if !inv.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, inv.Deadline)
		defer cancel()
	}

	ref := h.now()
	if trigger.ReferenceTime != nil {
		ref = *trigger.ReferenceTime
	}

	report, err := h.coordinator.Run(ctx, ref)
	if err != nil {
		logger.Error().Err(err).Msg("Run failed")
		return failure(err.Error())
	}

	body, err := json.Marshal(report)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode report")
		return failure(err.Error())
	}
	return Response{StatusCode: http.StatusOK, Body: string(body)}
}

func failure(message string) Response {
	body, _ := json.Marshal(errorBody{Error: message})
	return Response{StatusCode: http.StatusInternalServerError, Body: string(body)}
}
