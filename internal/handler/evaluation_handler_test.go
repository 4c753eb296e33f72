package handler_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/assessly/assessly-go-api/internal/client"
	"github.com/assessly/assessly-go-api/internal/config"
	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/handler"
	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/repository"
	"github.com/assessly/assessly-go-api/internal/router"
	"github.com/assessly/assessly-go-api/internal/scoring"
	"github.com/assessly/assessly-go-api/internal/service"
)

type fakeStructureFetcher struct {
	structure scoring.Structure
	err       error
}

func (f *fakeStructureFetcher) FetchStructure(_ context.Context, _ string) (scoring.Structure, error) {
	if f.err != nil {
		return scoring.Structure{}, f.err
	}
	return f.structure, nil
}

func handlerTestStructure() scoring.Structure {
	return scoring.Structure{
		AssessmentID: "asm-1",
		Sections: []scoring.Section{
			{
				ID: "sec-1",
				Questions: []scoring.Question{
					{
						ID:     "q1",
						Type:   scoring.TypeMCQ,
						Points: 1,
						Options: []scoring.Option{
							{ID: "o1", Label: "A", Text: "Yes", Correct: true},
							{ID: "o2", Label: "B", Text: "No"},
						},
					},
					{ID: "q2", Type: scoring.TypeCoding, Points: 2},
				},
			},
		},
	}
}

func setupEvaluationApp(t *testing.T, fetcher service.StructureFetcher) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := openHandlerTestDB(t)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	evaluationService := service.NewEvaluationService(evaluationRepo, submissionRepo, fetcher, nil, validate, logger, service.EvaluationServiceConfig{})

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, logger),
	})

	return app, db
}

func seedEvaluationSubmission(t *testing.T, db *gorm.DB, answers datatypes.JSONMap) models.Submission {
	t.Helper()

	submission := models.Submission{
		CandidateID:  "cand-1",
		AssessmentID: "asm-1",
		Status:       models.SubmissionStatusSubmitted,
		Answers:      answers,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestEvaluationHandlerEvaluatesSubmission(t *testing.T) {
	app, db := setupEvaluationApp(t, &fakeStructureFetcher{structure: handlerTestStructure()})
	submission := seedEvaluationSubmission(t, db, datatypes.JSONMap{"q1": "A", "q2": "solution"})

	path := fmt.Sprintf("/api/v1/evaluations/submission/%d", submission.ID)
	req := httptest.NewRequest(http.MethodPost, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Data    dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, "submission evaluated", payload.Message)
	require.InDelta(t, 3.0, payload.Data.TotalScore, 0.001)
	require.InDelta(t, 100.0, payload.Data.PercentageScore, 0.001)
	require.True(t, payload.Data.Passed)
	require.Len(t, payload.Data.QuestionResults, 2)

	// Triggering again returns the stored evaluation without a second run.
	again := httptest.NewRequest(http.MethodPost, path, nil)
	againResp, err := app.Test(again, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, againResp.StatusCode)

	var repeat struct {
		Message string                 `json:"message"`
		Data    dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, againResp, &repeat)
	require.Equal(t, "evaluation already exists", repeat.Message)
	require.Equal(t, payload.Data.ID, repeat.Data.ID)
}

func TestEvaluationHandlerAcceptsThresholdOverride(t *testing.T) {
	app, db := setupEvaluationApp(t, &fakeStructureFetcher{structure: handlerTestStructure()})
	submission := seedEvaluationSubmission(t, db, datatypes.JSONMap{"q1": "B", "q2": "solution"})

	path := fmt.Sprintf("/api/v1/evaluations/submission/%d", submission.ID)
	resp := postJSON(t, app, path, map[string]interface{}{"passing_threshold": 80})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload struct {
		Data dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.InDelta(t, 80.0, payload.Data.PassingThreshold, 0.001)
	require.False(t, payload.Data.Passed)
}

func TestEvaluationHandlerGetRoutes(t *testing.T) {
	app, db := setupEvaluationApp(t, &fakeStructureFetcher{structure: handlerTestStructure()})
	submission := seedEvaluationSubmission(t, db, datatypes.JSONMap{"q1": "A", "q2": "x"})

	resp := postJSON(t, app, fmt.Sprintf("/api/v1/evaluations/submission/%d", submission.ID), map[string]interface{}{})
	var created struct {
		Data dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)

	byID := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/evaluations/%d", created.Data.ID), nil)
	byIDResp, err := app.Test(byID, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, byIDResp.StatusCode)

	bySubmission := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/evaluations/submission/%d", submission.ID), nil)
	bySubmissionResp, err := app.Test(bySubmission, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, bySubmissionResp.StatusCode)

	var fetched struct {
		Data dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, bySubmissionResp, &fetched)
	require.Equal(t, created.Data.ID, fetched.Data.ID)
}

func TestEvaluationHandlerUnknownSubmissionReturns404(t *testing.T) {
	app, _ := setupEvaluationApp(t, &fakeStructureFetcher{structure: handlerTestStructure()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/submission/999", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/999", nil)
	getResp, err := app.Test(get, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, getResp.StatusCode)
}

func TestEvaluationHandlerStructureFailureReturns502(t *testing.T) {
	fetchErr := fmt.Errorf("%w: upstream down", client.ErrStructureUnavailable)
	app, db := setupEvaluationApp(t, &fakeStructureFetcher{err: fetchErr})
	submission := seedEvaluationSubmission(t, db, datatypes.JSONMap{"q1": "A"})

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/evaluations/submission/%d", submission.ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestEvaluationHandlerEmptyAnswersReturns400(t *testing.T) {
	app, db := setupEvaluationApp(t, &fakeStructureFetcher{structure: handlerTestStructure()})
	submission := seedEvaluationSubmission(t, db, datatypes.JSONMap{})

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/evaluations/submission/%d", submission.ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
