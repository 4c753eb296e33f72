package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/service"
	"github.com/assessly/assessly-go-api/internal/utils"
)

// CodeRunHandler exposes code execution against the external runner plus
// the stored execution history.
type CodeRunHandler struct {
	service service.CodeExecutionService
	logger  zerolog.Logger
}

// NewCodeRunHandler builds a code run handler instance.
func NewCodeRunHandler(service service.CodeExecutionService, logger zerolog.Logger) *CodeRunHandler {
	return &CodeRunHandler{
		service: service,
		logger:  logger.With().Str("component", "code_run_handler").Logger(),
	}
}

// Register attaches the execution routes to the provided router group.
func (h *CodeRunHandler) Register(router fiber.Router) {
	router.Post("/run", h.run)
	router.Get("/runtimes", h.runtimes)
}

// RegisterExecutions attaches the execution history routes.
func (h *CodeRunHandler) RegisterExecutions(router fiber.Router) {
	router.Get("/submission/:submissionId", h.listBySubmission)
	router.Get("/:id", h.get)
}

func (h *CodeRunHandler) run(c *fiber.Ctx) error {
	var payload dto.CodeRunRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	execution, err := h.service.Execute(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "code executed", execution)
}

func (h *CodeRunHandler) runtimes(c *fiber.Ctx) error {
	runtimes, err := h.service.Runtimes(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "runtimes retrieved", runtimes)
}

func (h *CodeRunHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid execution id")
	}

	execution, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "execution retrieved", execution)
}

func (h *CodeRunHandler) listBySubmission(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	executions, err := h.service.ListBySubmission(c.Context(), submissionID, c.Query("question_id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "executions retrieved", executions)
}

func (h *CodeRunHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrExecutionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "execution not found")
	case errors.Is(err, service.ErrRunnerUnavailable):
		requestLogger(h.logger, c).Error().Err(err).Msg("code runner request failed")
		return utils.SendError(c, fiber.StatusBadGateway, "code runner unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
