package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is one candidate's full answer set for one assessment
// attempt. Answers are captured once at creation time and never mutated.
type Submission struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	CandidateID  string            `gorm:"size:64;not null;index" json:"candidate_id"`
	AssessmentID string            `gorm:"size:64;not null;index" json:"assessment_id"`
	CandidateRef *int64            `json:"candidate_ref"`
	Status       string            `gorm:"size:32;not null;index" json:"status"`
	Method       string            `gorm:"size:32" json:"method"`
	Answers      datatypes.JSONMap `json:"answers"`
	TotalScore   *float64          `json:"total_score"`
	MaxScore     *float64          `json:"max_score"`
	Remarks      string            `gorm:"type:text" json:"remarks"`
	EvaluationID *uint             `json:"evaluation_id"`
	SubmittedAt  *time.Time        `json:"submitted_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Files        []SubmissionFile  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"files"`
}

const (
	// SubmissionStatusSubmitted indicates answers were received but not evaluated.
	SubmissionStatusSubmitted = "SUBMITTED"
	// SubmissionStatusEvaluated indicates the evaluation engine produced a score.
	SubmissionStatusEvaluated = "EVALUATED"
	// SubmissionStatusCompleted indicates the score was set through the
	// manual update path without running the engine.
	SubmissionStatusCompleted = "COMPLETED"
)

// IsScored reports whether the submission reached a terminal scored state.
func (s Submission) IsScored() bool {
	return s.Status == SubmissionStatusEvaluated || s.Status == SubmissionStatusCompleted
}

// SubmissionFile is a candidate-uploaded artifact attached to a submission.
type SubmissionFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	FileURL      string    `gorm:"size:512;not null" json:"file_url"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
