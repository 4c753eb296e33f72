// Package client talks to the assessment service: it fetches assessment
// structures for the evaluation engine and pushes aggregate scores back to
// the assessment-side candidate record.
package client

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/assessly/assessly-go-api/internal/scoring"
)

//go:embed structure_schema.json
var structureSchema string

// ErrStructureUnavailable indicates the assessment structure could not be
// fetched or did not match the expected shape. Evaluation aborts on it.
var ErrStructureUnavailable = errors.New("assessment structure unavailable")

// sectionAliases canonicalises legacy section names still present in old
// assessment records.
var sectionAliases = map[string]string{
	"Aptitude Test":     "Aptitude",
	"Technical MCQs":    "Technical",
	"Programming Round": "Coding",
	"Coding Challenge":  "Coding",
	"Logical Reasoning": "Reasoning",
}

// ScoreReport is the aggregate payload synced to the assessment-side
// candidate record.
type ScoreReport struct {
	TotalScore          float64 `json:"totalScore"`
	MaxScore            float64 `json:"maxScore"`
	PercentageScore     float64 `json:"percentageScore"`
	IsPassed            bool    `json:"isPassed"`
	TotalQuestions      int     `json:"totalQuestions"`
	AttemptedQuestions  int     `json:"attemptedQuestions"`
	CorrectAnswers      int     `json:"correctAnswers"`
	IncorrectAnswers    int     `json:"incorrectAnswers"`
	UnansweredQuestions int     `json:"unansweredQuestions"`
	McqCorrect          int     `json:"mcqCorrect"`
	McqTotal            int     `json:"mcqTotal"`
	CodingPassed        int     `json:"codingPassed"`
	CodingTotal         int     `json:"codingTotal"`
}

// AssessmentClient is an HTTP client for the assessment service.
type AssessmentClient struct {
	baseURL string
	http    *http.Client
	schema  *jsonschema.Schema
	logger  zerolog.Logger
}

// NewAssessmentClient builds a client with the given base URL and request
// timeout. The timeout applies to each structure fetch and score sync call.
func NewAssessmentClient(baseURL string, timeout time.Duration, logger zerolog.Logger) (*AssessmentClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("assessment service url must not be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("structure_schema.json", strings.NewReader(structureSchema)); err != nil {
		return nil, fmt.Errorf("failed to load structure schema: %w", err)
	}
	schema, err := compiler.Compile("structure_schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structure schema: %w", err)
	}

	return &AssessmentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		schema:  schema,
		logger:  logger.With().Str("component", "assessment_client").Logger(),
	}, nil
}

// FetchStructure retrieves and validates the assessment structure. Any
// transport failure, non-200 status, or schema violation is reported as
// ErrStructureUnavailable.
func (c *AssessmentClient) FetchStructure(ctx context.Context, assessmentID string) (scoring.Structure, error) {
	url := fmt.Sprintf("%s/assessments/%s/structure", c.baseURL, assessmentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scoring.Structure{}, fmt.Errorf("%w: %v", ErrStructureUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return scoring.Structure{}, fmt.Errorf("%w: %v", ErrStructureUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scoring.Structure{}, fmt.Errorf("%w: unexpected status %d", ErrStructureUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return scoring.Structure{}, fmt.Errorf("%w: %v", ErrStructureUnavailable, err)
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return scoring.Structure{}, fmt.Errorf("%w: invalid json: %v", ErrStructureUnavailable, err)
	}
	if err := c.schema.Validate(raw); err != nil {
		c.logger.Warn().Err(err).Str("assessment_id", assessmentID).Msg("structure failed schema validation")
		return scoring.Structure{}, fmt.Errorf("%w: malformed structure", ErrStructureUnavailable)
	}

	var structure scoring.Structure
	if err := json.Unmarshal(body, &structure); err != nil {
		return scoring.Structure{}, fmt.Errorf("%w: %v", ErrStructureUnavailable, err)
	}

	if structure.AssessmentID == "" {
		structure.AssessmentID = assessmentID
	}
	for i := range structure.Sections {
		if canonical, ok := sectionAliases[structure.Sections[i].Name]; ok {
			structure.Sections[i].Name = canonical
		}
	}

	return structure, nil
}

// SyncScore pushes the aggregate score to the assessment-side candidate
// record. Callers treat failures as best-effort: log and move on.
func (c *AssessmentClient) SyncScore(ctx context.Context, candidateRef int64, report ScoreReport) error {
	url := fmt.Sprintf("%s/candidates/%d/score", c.baseURL, candidateRef)

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode score report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build score sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("score sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("score sync returned status %d", resp.StatusCode)
	}

	c.logger.Info().Int64("candidate_ref", candidateRef).Msg("score synced to assessment service")

	return nil
}
