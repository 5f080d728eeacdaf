package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/dto"
	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

type sessionStore interface {
	Create(ctx context.Context, session *models.ExamSession) error
	GetByID(ctx context.Context, id int64) (*models.ExamSession, error)
	List(ctx context.Context) ([]models.ExamSession, error)
}

// SessionService registers exam sessions; every import and document belongs to one.
type SessionService struct {
	repo      sessionStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionStore, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{repo: repo, validator: validate, logger: logger}
}

// Create validates and stores a session.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest) (*models.ExamSession, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.AcademicYear = strings.TrimSpace(req.AcademicYear)
	req.Semester = strings.TrimSpace(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	session := &models.ExamSession{Name: req.Name, AcademicYear: req.AcademicYear, Semester: req.Semester}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.logger.Info("exam session created", zap.Int64("session_id", session.ID), zap.String("name", session.Name))
	return session, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id int64) (*models.ExamSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// List returns all sessions, newest first.
func (s *SessionService) List(ctx context.Context) ([]models.ExamSession, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.ExamSession{}
	}
	return sessions, nil
}
