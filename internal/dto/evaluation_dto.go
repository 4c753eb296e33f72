package dto

import (
	"encoding/json"
	"time"

	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/scoring"
)

// EvaluateSubmissionRequest is the optional trigger payload.
type EvaluateSubmissionRequest struct {
	PassingThreshold   *float64 `json:"passing_threshold" validate:"omitempty,gte=0,lte=100"`
	AutoEvaluateCoding *bool    `json:"auto_evaluate_coding"`
}

// EvaluationResponse represents an evaluation to API consumers.
type EvaluationResponse struct {
	ID               uint                     `json:"id"`
	SubmissionID     uint                     `json:"submission_id"`
	TotalScore       float64                  `json:"total_score"`
	MaxScore         float64                  `json:"max_score"`
	PercentageScore  float64                  `json:"percentage_score"`
	McqScore         float64                  `json:"mcq_score"`
	McqMaxScore      float64                  `json:"mcq_max_score"`
	McqCorrect       int                      `json:"mcq_correct"`
	McqTotal         int                      `json:"mcq_total"`
	CodingScore      float64                  `json:"coding_score"`
	CodingMaxScore   float64                  `json:"coding_max_score"`
	CodingPassed     int                      `json:"coding_passed"`
	CodingTotal      int                      `json:"coding_total"`
	TotalQuestions   int                      `json:"total_questions"`
	Attempted        int                      `json:"attempted"`
	Correct          int                      `json:"correct"`
	Incorrect        int                      `json:"incorrect"`
	Unanswered       int                      `json:"unanswered"`
	Passed           bool                     `json:"passed"`
	PassingThreshold float64                  `json:"passing_threshold"`
	QuestionResults  []scoring.QuestionResult `json:"question_results"`
	EvaluatedAt      time.Time                `json:"evaluated_at"`
}

// NewEvaluationResponse builds a response DTO from a model, decoding the
// stored per-question results.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	var results []scoring.QuestionResult
	if len(evaluation.QuestionResults) > 0 {
		// Stored by us at evaluation time; a decode failure means
		// corrupted data and surfaces as an empty breakdown.
		_ = json.Unmarshal(evaluation.QuestionResults, &results)
	}

	return EvaluationResponse{
		ID:               evaluation.ID,
		SubmissionID:     evaluation.SubmissionID,
		TotalScore:       evaluation.TotalScore,
		MaxScore:         evaluation.MaxScore,
		PercentageScore:  evaluation.PercentageScore,
		McqScore:         evaluation.McqScore,
		McqMaxScore:      evaluation.McqMaxScore,
		McqCorrect:       evaluation.McqCorrect,
		McqTotal:         evaluation.McqTotal,
		CodingScore:      evaluation.CodingScore,
		CodingMaxScore:   evaluation.CodingMaxScore,
		CodingPassed:     evaluation.CodingPassed,
		CodingTotal:      evaluation.CodingTotal,
		TotalQuestions:   evaluation.TotalQuestions,
		Attempted:        evaluation.Attempted,
		Correct:          evaluation.Correct,
		Incorrect:        evaluation.Incorrect,
		Unanswered:       evaluation.Unanswered,
		Passed:           evaluation.Passed,
		PassingThreshold: evaluation.PassingThreshold,
		QuestionResults:  results,
		EvaluatedAt:      evaluation.EvaluatedAt,
	}
}
