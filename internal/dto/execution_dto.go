package dto

import (
	"time"

	"github.com/assessly/assessly-go-api/internal/models"
)

// CodeRunRequest is one code execution request. SubmissionID and
// QuestionID are optional and link the run to a coding question.
type CodeRunRequest struct {
	Language     string `json:"language" validate:"required"`
	Version      string `json:"version"`
	Code         string `json:"code" validate:"required"`
	Stdin        string `json:"stdin"`
	SubmissionID *uint  `json:"submission_id" validate:"omitempty,gt=0"`
	QuestionID   string `json:"question_id"`
}

// CodeExecutionResponse represents a stored execution record to API
// consumers.
type CodeExecutionResponse struct {
	ID           uint      `json:"id"`
	SubmissionID *uint     `json:"submission_id,omitempty"`
	QuestionID   string    `json:"question_id,omitempty"`
	Language     string    `json:"language"`
	Version      string    `json:"version"`
	Stdout       string    `json:"stdout"`
	Stderr       string    `json:"stderr"`
	Output       string    `json:"output"`
	ExitCode     int       `json:"exit_code"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCodeExecutionResponse builds a response DTO from a model.
func NewCodeExecutionResponse(execution models.CodeExecution) CodeExecutionResponse {
	return CodeExecutionResponse{
		ID:           execution.ID,
		SubmissionID: execution.SubmissionID,
		QuestionID:   execution.QuestionID,
		Language:     execution.Language,
		Version:      execution.Version,
		Stdout:       execution.Stdout,
		Stderr:       execution.Stderr,
		Output:       execution.Output,
		ExitCode:     execution.ExitCode,
		CreatedAt:    execution.CreatedAt,
	}
}

// NewCodeExecutionResponses maps a slice of execution records.
func NewCodeExecutionResponses(executions []models.CodeExecution) []CodeExecutionResponse {
	responses := make([]CodeExecutionResponse, 0, len(executions))
	for _, execution := range executions {
		responses = append(responses, NewCodeExecutionResponse(execution))
	}
	return responses
}
