package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/assessly/assessly-go-api/internal/scoring"
)

func TestFetchStructureDecodesAndCanonicalises(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assessments/a-42/structure", r.URL.Path)
		payload := map[string]interface{}{
			"sections": []map[string]interface{}{
				{
					"sectionId":   "s1",
					"sectionName": "Programming Round",
					"questions": []map[string]interface{}{
						{
							"questionId": "q1",
							"type":       "MCQ",
							"points":     2,
							"mcqOptions": []map[string]interface{}{
								{"optionId": "1", "optionLabel": "A", "optionText": "Alpha", "isCorrect": false},
								{"optionId": "2", "optionLabel": "B", "optionText": "Beta", "isCorrect": true},
							},
						},
						{"questionId": "q2", "type": "CODING", "points": 5},
					},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	c, err := NewAssessmentClient(server.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	structure, err := c.FetchStructure(context.Background(), "a-42")
	require.NoError(t, err)
	require.Equal(t, "a-42", structure.AssessmentID)
	require.Len(t, structure.Sections, 1)
	require.Equal(t, "Coding", structure.Sections[0].Name)

	questions := structure.Questions()
	require.Len(t, questions, 2)
	require.Equal(t, scoring.TypeMCQ, questions[0].Type)
	require.True(t, questions[0].Options[1].Correct)
	require.InDelta(t, 5, questions[1].Points, 1e-9)
}

func TestFetchStructureRejectsMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// sections must be an array
		_, _ = io.WriteString(w, `{"sections": {"s1": []}}`)
	}))
	defer server.Close()

	c, err := NewAssessmentClient(server.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.FetchStructure(context.Background(), "a-42")
	require.ErrorIs(t, err, ErrStructureUnavailable)
}

func TestFetchStructureRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c, err := NewAssessmentClient(server.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.FetchStructure(context.Background(), "missing")
	require.ErrorIs(t, err, ErrStructureUnavailable)
}

func TestSyncScoreSendsExpectedPayload(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/candidates/77/score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := NewAssessmentClient(server.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	report := ScoreReport{
		TotalScore:          7,
		MaxScore:            10,
		PercentageScore:     70,
		IsPassed:            true,
		TotalQuestions:      5,
		AttemptedQuestions:  4,
		CorrectAnswers:      3,
		IncorrectAnswers:    1,
		UnansweredQuestions: 1,
		McqCorrect:          2,
		McqTotal:            3,
		CodingPassed:        1,
		CodingTotal:         2,
	}
	require.NoError(t, c.SyncScore(context.Background(), 77, report))

	require.InDelta(t, 70.0, received["percentageScore"], 1e-9)
	require.Equal(t, true, received["isPassed"])
	require.InDelta(t, 1.0, received["codingPassed"], 1e-9)
	require.InDelta(t, 1.0, received["unansweredQuestions"], 1e-9)
}

func TestSyncScoreReportsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := NewAssessmentClient(server.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	err = c.SyncScore(context.Background(), 77, ScoreReport{})
	require.Error(t, err)
}
