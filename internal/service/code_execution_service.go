package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/repository"
	"github.com/assessly/assessly-go-api/pkg/coderunner"
)

// ErrExecutionNotFound flags a missing code execution record.
var ErrExecutionNotFound = errors.New("code execution not found")

// ErrRunnerUnavailable flags a failed call to the external code runner.
var ErrRunnerUnavailable = errors.New("code runner unavailable")

// CodeRunner abstracts the external execution backend.
type CodeRunner interface {
	Run(ctx context.Context, request coderunner.RunRequest) (coderunner.RunResult, error)
	Runtimes(ctx context.Context) ([]coderunner.Runtime, error)
}

// CodeExecutionService runs candidate code on the external runner and
// keeps a queryable history of every run.
type CodeExecutionService interface {
	Execute(ctx context.Context, payload dto.CodeRunRequest) (dto.CodeExecutionResponse, error)
	Get(ctx context.Context, id uint) (dto.CodeExecutionResponse, error)
	ListBySubmission(ctx context.Context, submissionID uint, questionID string) ([]dto.CodeExecutionResponse, error)
	Runtimes(ctx context.Context) ([]coderunner.Runtime, error)
}

type codeExecutionService struct {
	executions  repository.ExecutionRepository
	submissions repository.SubmissionRepository
	runner      CodeRunner
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewCodeExecutionService builds the code execution service instance.
func NewCodeExecutionService(
	executions repository.ExecutionRepository,
	submissions repository.SubmissionRepository,
	runner CodeRunner,
	validate *validator.Validate,
	logger zerolog.Logger,
) CodeExecutionService {
	return &codeExecutionService{
		executions:  executions,
		submissions: submissions,
		runner:      runner,
		validator:   validate,
		logger:      logger.With().Str("component", "code_execution_service").Logger(),
	}
}

func (s *codeExecutionService) Execute(ctx context.Context, payload dto.CodeRunRequest) (dto.CodeExecutionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CodeExecutionResponse{}, err
	}

	if payload.SubmissionID != nil {
		if _, err := s.submissions.GetByID(ctx, *payload.SubmissionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CodeExecutionResponse{}, ErrSubmissionNotFound
			}
			return dto.CodeExecutionResponse{}, err
		}
	}

	result, err := s.runner.Run(ctx, coderunner.RunRequest{
		Language: payload.Language,
		Version:  payload.Version,
		Code:     payload.Code,
		Stdin:    payload.Stdin,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("language", payload.Language).Msg("code execution failed")
		return dto.CodeExecutionResponse{}, fmt.Errorf("%w: %v", ErrRunnerUnavailable, err)
	}

	execution := models.CodeExecution{
		SubmissionID: payload.SubmissionID,
		QuestionID:   payload.QuestionID,
		Language:     result.Language,
		Version:      result.Version,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
		Output:       result.Output,
		ExitCode:     result.ExitCode,
	}
	if err := s.executions.Create(ctx, &execution); err != nil {
		return dto.CodeExecutionResponse{}, err
	}

	s.logger.Info().
		Uint("execution_id", execution.ID).
		Str("language", execution.Language).
		Int("exit_code", execution.ExitCode).
		Msg("code execution recorded")

	return dto.NewCodeExecutionResponse(execution), nil
}

func (s *codeExecutionService) Get(ctx context.Context, id uint) (dto.CodeExecutionResponse, error) {
	execution, err := s.executions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CodeExecutionResponse{}, ErrExecutionNotFound
		}
		return dto.CodeExecutionResponse{}, err
	}

	return dto.NewCodeExecutionResponse(execution), nil
}

func (s *codeExecutionService) ListBySubmission(ctx context.Context, submissionID uint, questionID string) ([]dto.CodeExecutionResponse, error) {
	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	executions, err := s.executions.ListBySubmission(ctx, submissionID, questionID)
	if err != nil {
		return nil, err
	}

	return dto.NewCodeExecutionResponses(executions), nil
}

func (s *codeExecutionService) Runtimes(ctx context.Context) ([]coderunner.Runtime, error) {
	runtimes, err := s.runner.Runtimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRunnerUnavailable, err)
	}

	return runtimes, nil
}
