package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation is the immutable scored outcome of evaluating one submission.
// The unique index on SubmissionID is the idempotency boundary: a losing
// concurrent insert fails with a duplicate-key error and the caller
// returns the winner's record instead.
type Evaluation struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SubmissionID     uint           `gorm:"uniqueIndex;not null" json:"submission_id"`
	TotalScore       float64        `json:"total_score"`
	MaxScore         float64        `json:"max_score"`
	PercentageScore  float64        `json:"percentage_score"`
	McqScore         float64        `json:"mcq_score"`
	McqMaxScore      float64        `json:"mcq_max_score"`
	McqCorrect       int            `json:"mcq_correct"`
	McqTotal         int            `json:"mcq_total"`
	CodingScore      float64        `json:"coding_score"`
	CodingMaxScore   float64        `json:"coding_max_score"`
	CodingPassed     int            `json:"coding_passed"`
	CodingTotal      int            `json:"coding_total"`
	TotalQuestions   int            `json:"total_questions"`
	Attempted        int            `json:"attempted"`
	Correct          int            `json:"correct"`
	Incorrect        int            `json:"incorrect"`
	Unanswered       int            `json:"unanswered"`
	Passed           bool           `json:"passed"`
	PassingThreshold float64        `json:"passing_threshold"`
	QuestionResults  datatypes.JSON `json:"question_results"`
	EvaluatedAt      time.Time      `json:"evaluated_at"`
	CreatedAt        time.Time      `json:"created_at"`
}
