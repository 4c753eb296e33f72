package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/assessly/assessly-go-api/internal/client"
	"github.com/assessly/assessly-go-api/internal/dto"
	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/observability"
	"github.com/assessly/assessly-go-api/internal/repository"
	"github.com/assessly/assessly-go-api/internal/scoring"
)

// ErrEvaluationNotFound indicates an evaluation could not be found.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// StructureFetcher retrieves the assessment structure the engine scores
// against.
type StructureFetcher interface {
	FetchStructure(ctx context.Context, assessmentID string) (scoring.Structure, error)
}

// ScoreSyncer projects aggregate scores onto the assessment-side candidate
// record.
type ScoreSyncer interface {
	SyncScore(ctx context.Context, candidateRef int64, report client.ScoreReport) error
}

// EvaluationService orchestrates the submission evaluation lifecycle.
type EvaluationService interface {
	// Evaluate runs the engine for a submission. The returned bool is true
	// when a previously stored evaluation was returned instead of a new run.
	Evaluate(ctx context.Context, submissionID uint, payload dto.EvaluateSubmissionRequest) (dto.EvaluationResponse, bool, error)
	Get(ctx context.Context, id uint) (dto.EvaluationResponse, error)
	GetBySubmission(ctx context.Context, submissionID uint) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	submissions repository.SubmissionRepository
	structures  StructureFetcher
	syncer      ScoreSyncer
	engine      *scoring.Engine
	cache       *redis.Client
	cacheTTL    time.Duration
	events      *nats.Conn
	subject     string
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// EvaluationServiceConfig groups the optional collaborators.
type EvaluationServiceConfig struct {
	Cache        *redis.Client
	CacheTTL     time.Duration
	Events       *nats.Conn
	EventSubject string
}

// NewEvaluationService constructs an EvaluationService instance.
func NewEvaluationService(evaluations repository.EvaluationRepository, submissions repository.SubmissionRepository, structures StructureFetcher, syncer ScoreSyncer, validate *validator.Validate, logger zerolog.Logger, cfg EvaluationServiceConfig) EvaluationService {
	subject := cfg.EventSubject
	if subject == "" {
		subject = "assessly.evaluations.completed"
	}

	return &evaluationService{
		evaluations: evaluations,
		submissions: submissions,
		structures:  structures,
		syncer:      syncer,
		engine:      scoring.NewEngine(),
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		events:      cfg.Events,
		subject:     subject,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		now:         time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, submissionID uint, payload dto.EvaluateSubmissionRequest) (dto.EvaluationResponse, bool, error) {
	tracer := otel.Tracer("github.com/assessly/assessly-go-api/internal/service/evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.run",
		trace.WithAttributes(attribute.Int64("evaluation.submission_id", int64(submissionID))))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.EvaluationResponse{}, false, err
	}

	if cached, ok := s.cachedResponse(ctx, submissionID); ok {
		span.SetAttributes(attribute.Bool("evaluation.cache_hit", true))
		return cached, true, nil
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.EvaluationResponse{}, false, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.EvaluationResponse{}, false, err
	}

	// Idempotency guard: at most one evaluation per submission. The
	// unique index on submission_id closes the check-then-insert race
	// below.
	existing, err := s.evaluations.FindBySubmissionID(ctx, submissionID)
	if err == nil {
		span.SetAttributes(attribute.Bool("evaluation.idempotent", true))
		response := dto.NewEvaluationResponse(existing)
		s.storeCache(ctx, submissionID, response)
		return response, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.EvaluationResponse{}, false, err
	}

	structure, err := s.structures.FetchStructure(ctx, submission.AssessmentID)
	if err != nil {
		observability.Evaluations().WithLabelValues("structure_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "structure_fetch_failed")
		return dto.EvaluationResponse{}, false, err
	}

	opts := scoring.Options{PassingThreshold: payload.PassingThreshold}
	if payload.AutoEvaluateCoding != nil && !*payload.AutoEvaluateCoding {
		opts.ManualCoding = true
	}

	result, err := s.engine.Evaluate(structure, answerValues(submission.Answers), opts)
	if err != nil {
		observability.Evaluations().WithLabelValues("invalid").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine_rejected_input")
		return dto.EvaluationResponse{}, false, err
	}

	evaluation, err := s.persist(ctx, submission, result)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race; the winner's record is the result.
			stored, findErr := s.evaluations.FindBySubmissionID(ctx, submissionID)
			if findErr != nil {
				return dto.EvaluationResponse{}, false, findErr
			}
			span.SetAttributes(attribute.Bool("evaluation.idempotent", true))
			return dto.NewEvaluationResponse(stored), true, nil
		}
		span.RecordError(err)
		return dto.EvaluationResponse{}, false, err
	}

	observability.Evaluations().WithLabelValues("evaluated").Inc()
	s.logger.Info().
		Uint("submission_id", submissionID).
		Float64("total_score", evaluation.TotalScore).
		Float64("percentage", evaluation.PercentageScore).
		Bool("passed", evaluation.Passed).
		Msg("submission evaluated")

	response := dto.NewEvaluationResponse(evaluation)
	s.storeCache(ctx, submissionID, response)
	s.publishCompleted(submission, evaluation)
	s.syncScore(ctx, submission, result)

	return response, false, nil
}

// persist writes the evaluation and flips the submission into its terminal
// evaluated state.
func (s *evaluationService) persist(ctx context.Context, submission models.Submission, result scoring.Result) (models.Evaluation, error) {
	resultsJSON, err := json.Marshal(result.QuestionResults)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("failed to encode question results: %w", err)
	}

	evaluation := models.Evaluation{
		SubmissionID:     submission.ID,
		TotalScore:       result.TotalScore,
		MaxScore:         result.MaxScore,
		PercentageScore:  result.PercentageScore,
		McqScore:         result.McqScore,
		McqMaxScore:      result.McqMaxScore,
		McqCorrect:       result.McqCorrect,
		McqTotal:         result.McqTotal,
		CodingScore:      result.CodingScore,
		CodingMaxScore:   result.CodingMaxScore,
		CodingPassed:     result.CodingPassed,
		CodingTotal:      result.CodingTotal,
		TotalQuestions:   result.TotalQuestions,
		Attempted:        result.Attempted,
		Correct:          result.Correct,
		Incorrect:        result.Incorrect,
		Unanswered:       result.Unanswered,
		Passed:           result.Passed,
		PassingThreshold: result.PassingThreshold,
		QuestionResults:  datatypes.JSON(resultsJSON),
		EvaluatedAt:      s.now().UTC(),
	}

	if err := s.evaluations.Create(ctx, &evaluation); err != nil {
		return models.Evaluation{}, err
	}

	submission.TotalScore = &evaluation.TotalScore
	submission.MaxScore = &evaluation.MaxScore
	submission.EvaluationID = &evaluation.ID
	submission.Status = models.SubmissionStatusEvaluated
	if err := s.submissions.Update(ctx, &submission); err != nil {
		// The evaluation record is the source of truth; a failed status
		// flip is logged, not rolled back.
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to update submission after evaluation")
	}

	return evaluation, nil
}

func (s *evaluationService) Get(ctx context.Context, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) GetBySubmission(ctx context.Context, submissionID uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.FindBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) cacheKey(submissionID uint) string {
	return fmt.Sprintf("evaluation:submission:%d", submissionID)
}

func (s *evaluationService) cachedResponse(ctx context.Context, submissionID uint) (dto.EvaluationResponse, bool) {
	if s.cache == nil {
		return dto.EvaluationResponse{}, false
	}

	cached, err := s.cache.Get(ctx, s.cacheKey(submissionID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read evaluation cache")
		}
		return dto.EvaluationResponse{}, false
	}

	var response dto.EvaluationResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		return dto.EvaluationResponse{}, false
	}

	s.logger.Debug().Uint("submission_id", submissionID).Msg("evaluation cache hit")
	return response, true
}

func (s *evaluationService) storeCache(ctx context.Context, submissionID uint, response dto.EvaluationResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(submissionID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store evaluation cache")
	}
}

type evaluationCompletedEvent struct {
	SubmissionID    uint    `json:"submission_id"`
	AssessmentID    string  `json:"assessment_id"`
	CandidateID     string  `json:"candidate_id"`
	TotalScore      float64 `json:"total_score"`
	MaxScore        float64 `json:"max_score"`
	PercentageScore float64 `json:"percentage_score"`
	Passed          bool    `json:"passed"`
}

func (s *evaluationService) publishCompleted(submission models.Submission, evaluation models.Evaluation) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(evaluationCompletedEvent{
		SubmissionID:    submission.ID,
		AssessmentID:    submission.AssessmentID,
		CandidateID:     submission.CandidateID,
		TotalScore:      evaluation.TotalScore,
		MaxScore:        evaluation.MaxScore,
		PercentageScore: evaluation.PercentageScore,
		Passed:          evaluation.Passed,
	})
	if err != nil {
		return
	}

	if err := s.events.Publish(s.subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.subject).Msg("failed to publish evaluation event")
	}
}

// syncScore is best-effort by design: the persisted evaluation is the
// source of truth and a failed projection must never surface to the caller.
func (s *evaluationService) syncScore(ctx context.Context, submission models.Submission, result scoring.Result) {
	if s.syncer == nil {
		return
	}
	if submission.CandidateRef == nil {
		s.logger.Warn().Uint("submission_id", submission.ID).Msg("no candidate ref on submission, skipping score sync")
		return
	}

	report := client.ScoreReport{
		TotalScore:          result.TotalScore,
		MaxScore:            result.MaxScore,
		PercentageScore:     result.PercentageScore,
		IsPassed:            result.Passed,
		TotalQuestions:      result.TotalQuestions,
		AttemptedQuestions:  result.Attempted,
		CorrectAnswers:      result.Correct,
		IncorrectAnswers:    result.Incorrect,
		UnansweredQuestions: result.Unanswered,
		McqCorrect:          result.McqCorrect,
		McqTotal:            result.McqTotal,
		CodingPassed:        result.CodingPassed,
		CodingTotal:         result.CodingTotal,
	}

	if err := s.syncer.SyncScore(ctx, *submission.CandidateRef, report); err != nil {
		observability.ScoreSyncFailures().Inc()
		s.logger.Error().Err(err).Int64("candidate_ref", *submission.CandidateRef).Msg("failed to sync score to assessment service")
	}
}

// answerValues renders the stored answer map back to raw strings the way
// the candidate submitted them.
func answerValues(answers datatypes.JSONMap) map[string]string {
	out := make(map[string]string, len(answers))
	for questionID, value := range answers {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok {
			out[questionID] = s
			continue
		}
		out[questionID] = fmt.Sprintf("%v", value)
	}
	return out
}
