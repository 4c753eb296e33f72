package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/assessly/assessly-go-api/internal/config"
	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/handler"
	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/repository"
	"github.com/assessly/assessly-go-api/internal/router"
	"github.com/assessly/assessly-go-api/internal/service"
)

type testUploader struct{}

func (testUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	io.Copy(io.Discard, reader)
	return "https://files.test/" + name, nil
}

func openHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}, &models.SubmissionFile{}, &models.Evaluation{}, &models.CodeExecution{}))

	return db
}

func setupSubmissionApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := openHandlerTestDB(t)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	submissionService := service.NewSubmissionService(submissionRepo, validate, logger)
	fileService := service.NewSubmissionFileService(submissionRepo, testUploader{}, logger)

	app := fiber.New()
	submissionHandler := handler.NewSubmissionHandler(submissionService, fileService, logger)

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		SubmissionHandler: submissionHandler,
	})

	return app, db
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSubmissionHandlerCreateAndGet(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	resp := postJSON(t, app, "/api/v1/submissions", map[string]interface{}{
		"candidate_id":  "cand-1",
		"assessment_id": "asm-1",
		"candidate_ref": 42,
		"answers":       map[string]string{"q1": "A", "q2": "code here"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createResp struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
		Message string                 `json:"message"`
	}
	decodeResponse(t, resp, &createResp)
	require.True(t, createResp.Success)
	require.Equal(t, "submission created", createResp.Message)
	require.NotZero(t, createResp.Data.ID)
	require.Equal(t, models.SubmissionStatusSubmitted, createResp.Data.Status)
	require.Equal(t, "A", createResp.Data.Answers["q1"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions/"+strconv.FormatUint(uint64(createResp.Data.ID), 10), nil)
	getResp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, getResp.StatusCode)

	var getPayload struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, getResp, &getPayload)
	require.Equal(t, createResp.Data.ID, getPayload.Data.ID)
}

func TestSubmissionHandlerCreateRejectsMissingFields(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	resp := postJSON(t, app, "/api/v1/submissions", map[string]interface{}{
		"candidate_id": "cand-1",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionHandlerListFiltersByCandidate(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	for _, candidate := range []string{"cand-1", "cand-1", "cand-2"} {
		resp := postJSON(t, app, "/api/v1/submissions", map[string]interface{}{
			"candidate_id":  candidate,
			"assessment_id": "asm-1",
			"answers":       map[string]string{"q1": "A"},
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions?candidate_id=cand-1", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listResp struct {
		Data []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &listResp)
	require.Len(t, listResp.Data, 2)
}

func TestSubmissionHandlerStatusAndScoreUpdates(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	createResp := postJSON(t, app, "/api/v1/submissions", map[string]interface{}{
		"candidate_id":  "cand-1",
		"assessment_id": "asm-1",
		"answers":       map[string]string{"q1": "A"},
	})
	var created struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, createResp, &created)

	id := strconv.FormatUint(uint64(created.Data.ID), 10)

	statusBody, err := json.Marshal(map[string]string{"status": models.SubmissionStatusCompleted})
	require.NoError(t, err)
	statusReq := httptest.NewRequest(http.MethodPatch, "/api/v1/submissions/"+id+"/status", bytes.NewReader(statusBody))
	statusReq.Header.Set("Content-Type", "application/json")
	statusResp, err := app.Test(statusReq, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)

	var updated struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, statusResp, &updated)
	require.Equal(t, models.SubmissionStatusCompleted, updated.Data.Status)
	require.NotNil(t, updated.Data.SubmittedAt)

	scoreBody, err := json.Marshal(map[string]interface{}{
		"total_score": 8,
		"max_score":   10,
		"remarks":     "manually reviewed",
	})
	require.NoError(t, err)
	scoreReq := httptest.NewRequest(http.MethodPatch, "/api/v1/submissions/"+id+"/score", bytes.NewReader(scoreBody))
	scoreReq.Header.Set("Content-Type", "application/json")
	scoreResp, err := app.Test(scoreReq, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, scoreResp.StatusCode)

	var scored struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, scoreResp, &scored)
	require.NotNil(t, scored.Data.TotalScore)
	require.InDelta(t, 8.0, *scored.Data.TotalScore, 0.001)
	require.Equal(t, "manually reviewed", scored.Data.Remarks)
}

func TestSubmissionHandlerUnknownIDReturns404(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions/999", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/submissions/999", nil)
	delResp, err := app.Test(delReq, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, delResp.StatusCode)
}

func TestSubmissionHandlerFileUpload(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	createResp := postJSON(t, app, "/api/v1/submissions", map[string]interface{}{
		"candidate_id":  "cand-1",
		"assessment_id": "asm-1",
		"answers":       map[string]string{"q1": "A"},
	})
	var created struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, createResp, &created)

	id := strconv.FormatUint(uint64(created.Data.ID), 10)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "solution.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("print('hello')\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/"+id+"/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var attached struct {
		Data dto.SubmissionFileResponse `json:"data"`
	}
	decodeResponse(t, resp, &attached)
	require.Equal(t, "solution.txt", attached.Data.FileName)
	require.Equal(t, "https://files.test/solution.txt", attached.Data.FileURL)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/submissions/"+id+"/files", nil)
	listResp, err := app.Test(listReq, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listed struct {
		Data []dto.SubmissionFileResponse `json:"data"`
	}
	decodeResponse(t, listResp, &listed)
	require.Len(t, listed.Data, 1)
}
