package dto

import (
	"time"

	"github.com/assessly/assessly-go-api/internal/models"
)

// SubmissionCreateRequest represents the payload for creating a submission.
// Answers are keyed by question id and hold the candidate's raw values;
// they are immutable once the submission is created.
type SubmissionCreateRequest struct {
	CandidateID  string            `json:"candidate_id" validate:"required"`
	AssessmentID string            `json:"assessment_id" validate:"required"`
	CandidateRef *int64            `json:"candidate_ref"`
	Method       string            `json:"method"`
	Answers      map[string]string `json:"answers"`
}

// SubmissionStatusUpdateRequest updates the lifecycle status directly.
type SubmissionStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=SUBMITTED EVALUATED COMPLETED"`
}

// SubmissionScoreUpdateRequest is the manual score path that bypasses the
// evaluation engine and marks the submission COMPLETED.
type SubmissionScoreUpdateRequest struct {
	TotalScore float64 `json:"total_score" validate:"gte=0"`
	MaxScore   float64 `json:"max_score" validate:"gte=0"`
	Remarks    *string `json:"remarks"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	CandidateID  *string
	AssessmentID *string
	Status       *string
}

// SubmissionFileResponse describes an uploaded submission artifact.
type SubmissionFileResponse struct {
	ID          uint      `json:"id"`
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmissionResponse represents a submission to API consumers.
type SubmissionResponse struct {
	ID           uint                     `json:"id"`
	CandidateID  string                   `json:"candidate_id"`
	AssessmentID string                   `json:"assessment_id"`
	CandidateRef *int64                   `json:"candidate_ref,omitempty"`
	Status       string                   `json:"status"`
	Method       string                   `json:"method,omitempty"`
	Answers      map[string]string        `json:"answers"`
	TotalScore   *float64                 `json:"total_score"`
	MaxScore     *float64                 `json:"max_score"`
	Remarks      string                   `json:"remarks,omitempty"`
	EvaluationID *uint                    `json:"evaluation_id"`
	SubmittedAt  *time.Time               `json:"submitted_at"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	Files        []SubmissionFileResponse `json:"files,omitempty"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	answers := make(map[string]string, len(submission.Answers))
	for key, value := range submission.Answers {
		if s, ok := value.(string); ok {
			answers[key] = s
		}
	}

	response := SubmissionResponse{
		ID:           submission.ID,
		CandidateID:  submission.CandidateID,
		AssessmentID: submission.AssessmentID,
		CandidateRef: submission.CandidateRef,
		Status:       submission.Status,
		Method:       submission.Method,
		Answers:      answers,
		TotalScore:   submission.TotalScore,
		MaxScore:     submission.MaxScore,
		Remarks:      submission.Remarks,
		EvaluationID: submission.EvaluationID,
		SubmittedAt:  submission.SubmittedAt,
		CreatedAt:    submission.CreatedAt,
		UpdatedAt:    submission.UpdatedAt,
	}

	if len(submission.Files) > 0 {
		files := make([]SubmissionFileResponse, 0, len(submission.Files))
		for _, file := range submission.Files {
			files = append(files, NewSubmissionFileResponse(file))
		}
		response.Files = files
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of models.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}

// NewSubmissionFileResponse converts a SubmissionFile model into a DTO.
func NewSubmissionFileResponse(file models.SubmissionFile) SubmissionFileResponse {
	return SubmissionFileResponse{
		ID:          file.ID,
		FileName:    file.FileName,
		FileURL:     file.FileURL,
		ContentType: file.ContentType,
		SizeBytes:   file.SizeBytes,
		CreatedAt:   file.CreatedAt,
	}
}
