package service

import (
	"context"
	"fmt"
	"time"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
	"astroconsult-backend/internal/repository"
)

type sessionService struct {
	store      repository.Store
	settlement SettlementService
	notifier   Notifier
	now        func() time.Time
}

func NewSessionService(store repository.Store, settlement SettlementService, notifier Notifier, opts ...Option) SessionService {
	o := buildOptions(opts)
	return &sessionService{
		store:      store,
		settlement: settlement,
		notifier:   notifier,
		now:        o.now,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, callerID string, role domain.Role, astrologerID string, service domain.ServiceType) (*domain.Session, error) {
	logger.EnterMethod("sessionService.CreateSession", "customerID", callerID, "astrologerID", astrologerID, "serviceType", service)

	if role != domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers can start a consultation", domain.ErrAccessDenied)
	}
	if !service.Valid() {
		return nil, domain.NewValidationError("service_type", fmt.Sprintf("unknown service %q", service))
	}
	if astrologerID == "" {
		return nil, domain.NewValidationError("astrologer_id", "required")
	}
	if astrologerID == callerID {
		return nil, domain.NewValidationError("astrologer_id", "cannot consult yourself")
	}

	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, callerID); err != nil {
		logger.ExitMethodWithError("sessionService.CreateSession", err, "reason", "customer lookup")
		return nil, err
	}
	astrologer, err := repos.Users.GetByID(ctx, astrologerID)
	if err != nil {
		logger.ExitMethodWithError("sessionService.CreateSession", err, "reason", "astrologer lookup")
		return nil, err
	}
	if astrologer.Role != domain.RoleAstrologer {
		return nil, domain.NewValidationError("astrologer_id", "user is not an astrologer")
	}
	rate, err := repos.Pricing.GetRate(ctx, astrologerID, service)
	if err != nil {
		logger.ExitMethodWithError("sessionService.CreateSession", err, "reason", "rate lookup")
		return nil, err
	}

	session := &domain.Session{
		CustomerID:    callerID,
		AstrologerID:  astrologerID,
		ServiceType:   service,
		RatePerMinute: rate,
		Status:        domain.SessionStatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := repos.Sessions.Create(ctx, session); err != nil {
		logger.ExitMethodWithError("sessionService.CreateSession", err)
		return nil, err
	}

	logger.Info("Session created", "sessionID", session.ID, "serviceType", service, "ratePerMinute", rate.StringFixed(2))
	logger.ExitMethod("sessionService.CreateSession", "sessionID", session.ID)
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, callerID string, role domain.Role, sessionID string) (*domain.Session, error) {
	session, err := s.store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleSystem && !session.IsParticipant(callerID, role) {
		return nil, fmt.Errorf("%w: not a participant of session %s", domain.ErrAccessDenied, sessionID)
	}
	return session, nil
}

func (s *sessionService) ListSessionsByStatus(ctx context.Context, statuses []domain.SessionStatus, updatedBefore time.Time) ([]domain.Session, error) {
	return s.store.Repos().Sessions.ListByStatus(ctx, statuses, updatedBefore)
}

// authorize checks the caller against the session. Scheduled jobs act with
// RoleSystem and may only expire or end sessions.
func authorize(session *domain.Session, action domain.SessionAction, callerID string, role domain.Role) error {
	if role == domain.RoleSystem {
		if action == domain.ActionMissed || action == domain.ActionEnd {
			return nil
		}
		return fmt.Errorf("%w: system caller cannot %s a session", domain.ErrAccessDenied, action)
	}
	if !session.IsParticipant(callerID, role) {
		return fmt.Errorf("%w: caller %s is not the %s of session %s", domain.ErrAccessDenied, callerID, role, session.ID)
	}
	if action == domain.ActionRate && role != domain.RoleCustomer {
		return fmt.Errorf("%w: only the customer can rate a session", domain.ErrAccessDenied)
	}
	return nil
}

func validatePayload(action domain.SessionAction, payload domain.TransitionPayload) error {
	if !action.Valid() {
		return domain.NewValidationError("action", fmt.Sprintf("unknown action %q", action))
	}
	if action == domain.ActionRate {
		if payload.Rating == nil {
			return domain.NewValidationError("rating", "required")
		}
		if *payload.Rating < 1 || *payload.Rating > 5 {
			return domain.NewValidationError("rating", fmt.Sprintf("%d is outside 1..5", *payload.Rating))
		}
	}
	return nil
}

func (s *sessionService) TransitionSession(ctx context.Context, sessionID string, action domain.SessionAction, callerID string, role domain.Role, payload domain.TransitionPayload) (*domain.Session, error) {
	logger.EnterMethod("sessionService.TransitionSession", "sessionID", sessionID, "action", action, "callerID", callerID, "role", role)

	if err := validatePayload(action, payload); err != nil {
		logger.ExitMethodWithError("sessionService.TransitionSession", err)
		return nil, err
	}

	session, err := s.store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		logger.ExitMethodWithError("sessionService.TransitionSession", err)
		return nil, err
	}
	if err := authorize(session, action, callerID, role); err != nil {
		logger.ExitMethodWithError("sessionService.TransitionSession", err)
		return nil, err
	}

	if action == domain.ActionEnd {
		// The settlement re-checks the status under the session lock.
		result, err := s.settlement.SettleOnEnd(ctx, sessionID)
		if err != nil {
			logger.ExitMethodWithError("sessionService.TransitionSession", err)
			return nil, err
		}
		metrics.SessionTransitionsTotal.WithLabelValues(string(action), string(result.Session.Status)).Inc()
		logger.ExitMethod("sessionService.TransitionSession", "sessionID", sessionID, "status", result.Session.Status)
		return result.Session, nil
	}

	if !domain.CanApply(action, session.Status) {
		err := &domain.TransitionError{Action: action, Status: session.Status}
		logger.ExitMethodWithError("sessionService.TransitionSession", err)
		return nil, err
	}

	now := s.now().UTC()
	switch action {
	case domain.ActionRing:
		session.Status = domain.SessionStatusRinging
	case domain.ActionAnswer:
		session.Status = domain.SessionStatusActive
		session.StartTime = &now
		if payload.ConnectionID != "" {
			connID := payload.ConnectionID
			session.ConnectionID = &connID
		}
	case domain.ActionReject:
		session.Status = domain.SessionStatusRejected
	case domain.ActionMissed:
		session.Status = domain.SessionStatusMissed
	case domain.ActionRate:
		rating := *payload.Rating
		session.Rating = &rating
	}

	// A concurrent writer bumps the version and turns this into ErrConcurrentUpdate.
	if err := s.store.Repos().Sessions.Update(ctx, session); err != nil {
		logger.ExitMethodWithError("sessionService.TransitionSession", err)
		return nil, err
	}
	metrics.SessionTransitionsTotal.WithLabelValues(string(action), string(session.Status)).Inc()

	if action == domain.ActionMissed {
		dispatchAll(ctx, s.notifier, missedNotifications(session))
	}

	logger.Info("Session transitioned", "sessionID", sessionID, "action", action, "status", session.Status)
	logger.ExitMethod("sessionService.TransitionSession", "sessionID", sessionID, "status", session.Status)
	return session, nil
}
