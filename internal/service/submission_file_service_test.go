package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/repository"
)

type uploaderStub struct {
	url  string
	err  error
	name string
}

func (u *uploaderStub) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	u.name = name
	io.Copy(io.Discard, reader)
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestSubmissionFileServiceAttach(t *testing.T) {
	db := openEvaluationTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	submissions := NewSubmissionService(repo, validator.New(), zerolog.Nop())

	ctx := context.Background()
	created, err := submissions.Create(ctx, dto.SubmissionCreateRequest{
		CandidateID:  "cand-1",
		AssessmentID: "asm-1",
		Answers:      map[string]string{"q1": "A"},
	})
	require.NoError(t, err)

	uploader := &uploaderStub{url: "https://cdn.example.com/solution.txt"}
	svc := NewSubmissionFileService(repo, uploader, zerolog.Nop())

	file := buildFileHeader(t, "solution.txt", []byte("package main\n"))
	attached, err := svc.Attach(ctx, created.ID, file)
	require.NoError(t, err)
	require.Equal(t, "solution.txt", attached.FileName)
	require.Equal(t, uploader.url, attached.FileURL)
	require.Equal(t, "solution.txt", uploader.name)

	listed, err := svc.List(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, attached.ID, listed[0].ID)
}

func TestSubmissionFileServiceRejectsUnsupportedType(t *testing.T) {
	db := openEvaluationTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	submissions := NewSubmissionService(repo, validator.New(), zerolog.Nop())

	ctx := context.Background()
	created, err := submissions.Create(ctx, dto.SubmissionCreateRequest{
		CandidateID:  "cand-1",
		AssessmentID: "asm-1",
		Answers:      map[string]string{"q1": "A"},
	})
	require.NoError(t, err)

	svc := NewSubmissionFileService(repo, &uploaderStub{url: "https://cdn.example.com/x"}, zerolog.Nop())

	// PNG header, not in the allow list.
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	_, err = svc.Attach(ctx, created.ID, buildFileHeader(t, "screenshot.png", png))
	require.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestSubmissionFileServiceUnknownSubmission(t *testing.T) {
	db := openEvaluationTestDB(t)
	repo := repository.NewSubmissionRepository(db)

	svc := NewSubmissionFileService(repo, &uploaderStub{url: "https://cdn.example.com/x"}, zerolog.Nop())

	_, err := svc.Attach(context.Background(), 404, buildFileHeader(t, "solution.txt", []byte("x")))
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = svc.List(context.Background(), 404)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
