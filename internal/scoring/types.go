package scoring

// QuestionType identifies how a question is scored.
type QuestionType string

const (
	// TypeMCQ is a multiple-choice question scored by label match.
	TypeMCQ QuestionType = "MCQ"
	// TypeCoding is a free-form code question; real grading is delegated
	// to an external runner, the engine only records submission presence.
	TypeCoding QuestionType = "CODING"
)

// Option is a single answer choice of an MCQ question.
type Option struct {
	ID      string `json:"optionId"`
	Label   string `json:"optionLabel"`
	Text    string `json:"optionText"`
	Correct bool   `json:"isCorrect"`
}

// Question is the engine's view of a single question.
type Question struct {
	ID         string       `json:"questionId"`
	Type       QuestionType `json:"type"`
	Points     float64      `json:"points"`
	Difficulty string       `json:"difficultyLevel,omitempty"`
	Options    []Option     `json:"mcqOptions,omitempty"`
}

// Section groups questions in display order.
type Section struct {
	ID        string     `json:"sectionId"`
	Name      string     `json:"sectionName,omitempty"`
	Questions []Question `json:"questions"`
}

// Structure is the ordered assessment layout the engine evaluates against.
// Section and question order is stable for a given assessment version.
type Structure struct {
	AssessmentID string    `json:"assessmentId,omitempty"`
	Sections     []Section `json:"sections"`
}

// Questions flattens the structure in section order, then question order.
func (s Structure) Questions() []Question {
	var out []Question
	for _, section := range s.Sections {
		out = append(out, section.Questions...)
	}
	return out
}

// QuestionResult is the immutable per-question outcome of one evaluation run.
type QuestionResult struct {
	QuestionID    string       `json:"questionId"`
	QuestionType  QuestionType `json:"questionType"`
	UserAnswer    string       `json:"userAnswer"`
	CorrectAnswer string       `json:"correctAnswer"`
	Correct       bool         `json:"isCorrect"`
	Pending       bool         `json:"pending,omitempty"`
	PointsAwarded float64      `json:"pointsAwarded"`
	MaxPoints     float64      `json:"maxPoints"`
	Feedback      string       `json:"feedback"`
	Difficulty    string       `json:"difficulty,omitempty"`
}

// Result aggregates all question results of one submission.
type Result struct {
	TotalScore       float64          `json:"totalScore"`
	MaxScore         float64          `json:"maxScore"`
	PercentageScore  float64          `json:"percentageScore"`
	McqScore         float64          `json:"mcqScore"`
	McqMaxScore      float64          `json:"mcqMaxScore"`
	McqCorrect       int              `json:"mcqCorrect"`
	McqTotal         int              `json:"mcqTotal"`
	CodingScore      float64          `json:"codingScore"`
	CodingMaxScore   float64          `json:"codingMaxScore"`
	CodingPassed     int              `json:"codingPassed"`
	CodingTotal      int              `json:"codingTotal"`
	TotalQuestions   int              `json:"totalQuestions"`
	Attempted        int              `json:"totalQuestionsAttempted"`
	Correct          int              `json:"totalQuestionsCorrect"`
	Incorrect        int              `json:"totalQuestionsIncorrect"`
	Unanswered       int              `json:"totalQuestionsUnanswered"`
	Passed           bool             `json:"passed"`
	PassingThreshold float64          `json:"passingThreshold"`
	QuestionResults  []QuestionResult `json:"questionResults"`
}
