package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/repository"
)

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ErrUnsupportedFileType indicates the uploaded file failed type sniffing.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// SubmissionFileService attaches candidate artifacts to submissions.
type SubmissionFileService interface {
	Attach(ctx context.Context, submissionID uint, file *multipart.FileHeader) (dto.SubmissionFileResponse, error)
	List(ctx context.Context, submissionID uint) ([]dto.SubmissionFileResponse, error)
}

type submissionFileService struct {
	submissions repository.SubmissionRepository
	uploader    FileUploader
	logger      zerolog.Logger
}

// NewSubmissionFileService constructs a SubmissionFileService instance.
func NewSubmissionFileService(repo repository.SubmissionRepository, uploader FileUploader, logger zerolog.Logger) SubmissionFileService {
	return &submissionFileService{
		submissions: repo,
		uploader:    uploader,
		logger:      logger.With().Str("component", "submission_file_service").Logger(),
	}
}

func (s *submissionFileService) Attach(ctx context.Context, submissionID uint, file *multipart.FileHeader) (dto.SubmissionFileResponse, error) {
	if file == nil {
		return dto.SubmissionFileResponse{}, fmt.Errorf("submission file is required")
	}

	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionFileResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionFileResponse{}, err
	}

	contentType, err := sniffFileType(file)
	if err != nil {
		return dto.SubmissionFileResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.SubmissionFileResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	fileURL, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.SubmissionFileResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	record := models.SubmissionFile{
		SubmissionID: submissionID,
		FileName:     file.Filename,
		FileURL:      fileURL,
		ContentType:  contentType,
		SizeBytes:    file.Size,
	}

	if err := s.submissions.AddFile(ctx, &record); err != nil {
		return dto.SubmissionFileResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submissionID).Str("file_name", record.FileName).Msg("submission file attached")

	return dto.NewSubmissionFileResponse(record), nil
}

func (s *submissionFileService) List(ctx context.Context, submissionID uint) ([]dto.SubmissionFileResponse, error) {
	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	files, err := s.submissions.ListFiles(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionFileResponse, 0, len(files))
	for _, file := range files {
		responses = append(responses, dto.NewSubmissionFileResponse(file))
	}

	return responses, nil
}

func sniffFileType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"text/plain", "application/pdf", "application/zip", "application/x-zip-compressed"}
	for _, a := range allowed {
		if mime.Is(a) {
			return mime.String(), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, mime.String())
}
