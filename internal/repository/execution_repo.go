package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/assessly/assessly-go-api/internal/models"
)

// ExecutionRepository defines data operations for code execution records.
type ExecutionRepository interface {
	GetByID(ctx context.Context, id uint) (models.CodeExecution, error)
	ListBySubmission(ctx context.Context, submissionID uint, questionID string) ([]models.CodeExecution, error)
	Create(ctx context.Context, execution *models.CodeExecution) error
}

type executionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository instantiates the repository.
func NewExecutionRepository(db *gorm.DB) ExecutionRepository {
	return &executionRepository{db: db}
}

func (r *executionRepository) GetByID(ctx context.Context, id uint) (models.CodeExecution, error) {
	var execution models.CodeExecution
	if err := r.db.WithContext(ctx).First(&execution, id).Error; err != nil {
		return models.CodeExecution{}, err
	}

	return execution, nil
}

func (r *executionRepository) ListBySubmission(ctx context.Context, submissionID uint, questionID string) ([]models.CodeExecution, error) {
	query := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC")
	if questionID != "" {
		query = query.Where("question_id = ?", questionID)
	}

	var executions []models.CodeExecution
	if err := query.Find(&executions).Error; err != nil {
		return nil, err
	}

	return executions, nil
}

func (r *executionRepository) Create(ctx context.Context, execution *models.CodeExecution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}
