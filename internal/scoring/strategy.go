package scoring

import (
	"fmt"
	"strings"
)

// Strategy scores a single question against the candidate's raw answer.
// Implementations must be pure: same inputs, same result.
type Strategy interface {
	Score(q Question, rawAnswer string) QuestionResult
}

// MCQStrategy scores multiple-choice questions by matching the submitted
// value to the option labelled correct.
type MCQStrategy struct{}

// Score resolves the raw answer to an option label and compares it against
// the first option marked correct in display order.
func (MCQStrategy) Score(q Question, rawAnswer string) QuestionResult {
	result := QuestionResult{
		QuestionID:   q.ID,
		QuestionType: TypeMCQ,
		UserAnswer:   rawAnswer,
		MaxPoints:    q.Points,
		Difficulty:   q.Difficulty,
	}

	correct, ok := correctOption(q.Options)
	if !ok {
		result.CorrectAnswer = "N/A"
		result.Feedback = "No correct answer marked"
		return result
	}
	result.CorrectAnswer = correct.Label

	if strings.TrimSpace(rawAnswer) == "" {
		result.Feedback = "Not attempted"
		return result
	}

	selected := resolveLabel(q.Options, rawAnswer)
	if strings.EqualFold(selected, correct.Label) {
		result.Correct = true
		result.PointsAwarded = q.Points
		result.Feedback = "Correct!"
		return result
	}

	result.Feedback = fmt.Sprintf("Incorrect. Correct answer: %s", correct.Label)
	return result
}

// correctOption returns the first option marked correct in display order.
// More than one marked option is invalid data; first match wins.
func correctOption(options []Option) (Option, bool) {
	for _, option := range options {
		if option.Correct {
			return option, true
		}
	}
	return Option{}, false
}

// resolveLabel maps a raw submitted value to an option label. Candidates
// may submit the label itself, the option text, or the option id.
func resolveLabel(options []Option, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if isSingleLetter(trimmed) {
		return strings.ToUpper(trimmed)
	}
	for _, option := range options {
		if option.Text != "" && option.Text == raw {
			return option.Label
		}
		if option.ID != "" && option.ID == raw {
			return option.Label
		}
	}
	return raw
}

func isSingleLetter(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= 'A' && c <= 'D') || (c >= 'a' && c <= 'd')
}

// CodingStrategy awards full points for any non-blank submission. Test-case
// based grading happens in the external code runner; a future strategy can
// replace this one without touching aggregation.
type CodingStrategy struct {
	// AutoEvaluate credits non-blank submissions immediately. When false,
	// the answer is recorded but earns no points until graded externally.
	AutoEvaluate bool
}

// Score records submission presence for a coding question.
func (s CodingStrategy) Score(q Question, rawAnswer string) QuestionResult {
	result := QuestionResult{
		QuestionID:    q.ID,
		QuestionType:  TypeCoding,
		UserAnswer:    rawAnswer,
		CorrectAnswer: "N/A",
		MaxPoints:     q.Points,
		Difficulty:    q.Difficulty,
	}

	if strings.TrimSpace(rawAnswer) == "" {
		result.Feedback = "No code submitted"
		return result
	}

	if !s.AutoEvaluate {
		result.Pending = true
		result.Feedback = "Code submitted, awaiting external evaluation"
		return result
	}

	result.Correct = true
	result.PointsAwarded = q.Points
	result.Feedback = "Code submitted"
	return result
}
