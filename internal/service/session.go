package service

import (
	"context"
	"time"

	"svidanie/internal/domain"
	"svidanie/internal/models"

	"github.com/rs/zerolog"
)

type SessionService struct {
	sessionRepo domain.SessionRepository
	logger      *zerolog.Logger
}

func NewSessionService(sessionRepo domain.SessionRepository, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

func (s *SessionService) GetSession(ctx context.Context, userID int64) (*models.SessionState, error) {
	session, err := s.sessionRepo.GetSession(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get session")
		return nil, err
	}
	return session, nil
}

func (s *SessionService) SetScreen(ctx context.Context, userID int64, screen string, data map[string]interface{}) error {
	session := &models.SessionState{
		UserID: userID,
		Screen: screen,
		Data:   data,
	}
	return s.sessionRepo.SetSession(ctx, session)
}

func (s *SessionService) SetActiveBooking(ctx context.Context, userID, bookingID int64) error {
	session, err := s.sessionRepo.GetSession(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		session = &models.SessionState{UserID: userID}
	}
	session.ActiveBookingID = bookingID
	return s.sessionRepo.SetSession(ctx, session)
}

func (s *SessionService) UpdateSessionData(ctx context.Context, userID int64, key string, value interface{}) error {
	session, err := s.sessionRepo.GetSession(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		session = &models.SessionState{UserID: userID}
	}
	if session.Data == nil {
		session.Data = make(map[string]interface{})
	}
	session.Data[key] = value

	return s.sessionRepo.SetSession(ctx, session)
}

func (s *SessionService) ClearSession(ctx context.Context, userID int64) error {
	return s.sessionRepo.ClearSession(ctx, userID)
}

func (s *SessionService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.sessionRepo.CheckRateLimit(ctx, userID, limit, window)
}
