// Package scoring implements the evaluation engine: a pure, deterministic
// function from an assessment structure and a candidate's raw answers to a
// scored result. The engine holds no shared state and performs no I/O.
package scoring

import (
	"errors"
	"strings"
)

// DefaultPassingThreshold is applied when the caller does not supply one.
const DefaultPassingThreshold = 60.0

// ErrNoAnswers indicates the submission carried no answers at all. An empty
// answer set usually signals a broken submission path, so it is a hard
// error rather than a zero score.
var ErrNoAnswers = errors.New("no answers found in submission")

// ErrEmptyStructure indicates the assessment structure holds no questions.
var ErrEmptyStructure = errors.New("assessment structure has no questions")

// Options tunes a single evaluation run.
type Options struct {
	// PassingThreshold is the percentage required to pass. Nil selects
	// DefaultPassingThreshold; an explicit zero is honoured.
	PassingThreshold *float64
	// ManualCoding disables best-effort credit for coding questions.
	ManualCoding bool
}

// Engine evaluates submissions by dispatching each question to a
// per-type Strategy.
type Engine struct {
	strategies map[QuestionType]Strategy
}

// NewEngine builds an engine with the default MCQ and coding strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[QuestionType]Strategy{
			TypeMCQ: MCQStrategy{},
		},
	}
}

// WithStrategy replaces the strategy for a question type and returns the
// engine for chaining.
func (e *Engine) WithStrategy(t QuestionType, s Strategy) *Engine {
	e.strategies[t] = s
	return e
}

// Evaluate scores a candidate's answers against the assessment structure.
// The returned question results preserve section order, then question
// order within each section. Identical inputs always yield identical
// results.
func (e *Engine) Evaluate(structure Structure, answers map[string]string, opts Options) (Result, error) {
	if len(answers) == 0 {
		return Result{}, ErrNoAnswers
	}

	questions := structure.Questions()
	if len(questions) == 0 {
		return Result{}, ErrEmptyStructure
	}

	threshold := DefaultPassingThreshold
	if opts.PassingThreshold != nil && *opts.PassingThreshold >= 0 {
		threshold = *opts.PassingThreshold
	}

	result := Result{
		TotalQuestions:   len(questions),
		PassingThreshold: threshold,
		QuestionResults:  make([]QuestionResult, 0, len(questions)),
	}

	for _, question := range questions {
		if question.Points <= 0 {
			question.Points = 1
		}
		result.MaxScore += question.Points

		qr := e.scoreQuestion(question, answers[question.ID], opts)
		result.QuestionResults = append(result.QuestionResults, qr)

		attempted := strings.TrimSpace(qr.UserAnswer) != ""
		if attempted {
			result.Attempted++
		}
		switch {
		case qr.Correct:
			result.Correct++
			result.TotalScore += qr.PointsAwarded
		case qr.Pending:
			// Awaiting external grading; neither correct nor incorrect.
		case attempted:
			result.Incorrect++
		}

		switch question.Type {
		case TypeMCQ:
			result.McqTotal++
			result.McqMaxScore += question.Points
			if qr.Correct {
				result.McqCorrect++
				result.McqScore += qr.PointsAwarded
			}
		case TypeCoding:
			result.CodingTotal++
			result.CodingMaxScore += question.Points
			if qr.Correct {
				result.CodingPassed++
				result.CodingScore += qr.PointsAwarded
			}
		}
	}

	result.Unanswered = result.TotalQuestions - result.Attempted
	if result.MaxScore > 0 {
		result.PercentageScore = result.TotalScore / result.MaxScore * 100
	}
	result.Passed = result.PercentageScore >= threshold

	return result, nil
}

func (e *Engine) scoreQuestion(q Question, rawAnswer string, opts Options) QuestionResult {
	if strategy, ok := e.strategies[q.Type]; ok {
		return strategy.Score(q, rawAnswer)
	}
	if q.Type == TypeCoding {
		return CodingStrategy{AutoEvaluate: !opts.ManualCoding}.Score(q, rawAnswer)
	}
	return QuestionResult{
		QuestionID:    q.ID,
		QuestionType:  q.Type,
		UserAnswer:    rawAnswer,
		CorrectAnswer: "N/A",
		MaxPoints:     q.Points,
		Feedback:      "Unknown question type",
		Difficulty:    q.Difficulty,
	}
}

// Evaluate runs a one-off evaluation with the default engine. A threshold
// of zero or below selects DefaultPassingThreshold.
func Evaluate(structure Structure, answers map[string]string, passingThreshold float64) (Result, error) {
	opts := Options{}
	if passingThreshold > 0 {
		opts.PassingThreshold = &passingThreshold
	}
	return NewEngine().Evaluate(structure, answers, opts)
}
