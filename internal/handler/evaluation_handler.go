package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/assessly/assessly-go-api/internal/client"
	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/scoring"
	"github.com/assessly/assessly-go-api/internal/service"
	"github.com/assessly/assessly-go-api/internal/utils"
)

// EvaluationHandler manages evaluation endpoints.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler instance.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("/submission/:submissionId", h.evaluate)
	router.Get("/submission/:submissionId", h.getBySubmission)
	router.Get("/:id", h.get)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	// The trigger body is optional; an empty body means defaults.
	var payload dto.EvaluateSubmissionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	evaluation, reused, err := h.service.Evaluate(c.Context(), submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if reused {
		return utils.SendSuccess(c, "evaluation already exists", evaluation)
	}

	return utils.SendCreated(c, "submission evaluated", evaluation)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid evaluation id")
	}

	evaluation, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation retrieved", evaluation)
}

func (h *EvaluationHandler) getBySubmission(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	evaluation, err := h.service.GetBySubmission(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation retrieved", evaluation)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
	case errors.Is(err, scoring.ErrNoAnswers):
		return utils.SendError(c, fiber.StatusBadRequest, "submission has no answers to evaluate")
	case errors.Is(err, scoring.ErrEmptyStructure):
		return utils.SendError(c, fiber.StatusBadRequest, "assessment structure has no questions")
	case errors.Is(err, client.ErrStructureUnavailable):
		return utils.SendError(c, fiber.StatusBadGateway, "assessment structure unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
