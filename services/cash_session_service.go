package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/restaurant-pos-api/audit"
	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionCloseSummary is a closed session plus the raw payment sums recorded against it
type SessionCloseSummary struct {
	Session          *models.CashSession                      `json:"session"`
	PaymentCount     int                                      `json:"payment_count"`
	PaymentsTotal    decimal.Decimal                          `json:"payments_total"`
	PaymentsByMethod map[models.PaymentMethod]decimal.Decimal `json:"payments_by_method"`
}

// CashSessionService tracks cashier drawer sessions
type CashSessionService struct {
	store  *store.Store
	policy *authz.Policy
	audit  audit.Recorder
	logger *zap.Logger
}

// NewCashSessionService creates a cash session service
func NewCashSessionService(st *store.Store, policy *authz.Policy, recorder audit.Recorder, logger *zap.Logger) *CashSessionService {
	return &CashSessionService{
		store:  st,
		policy: policy,
		audit:  recorder,
		logger: logger.Named("cash_sessions"),
	}
}

// OpenSession opens a drawer session for the principal, who must not have one open already
func (s *CashSessionService) OpenSession(ctx context.Context, p Principal, initialCash decimal.Decimal, notes string) (*models.CashSession, error) {
	if err := requirePermission(s.policy, p, authz.OpenCashSession); err != nil {
		return nil, err
	}
	if initialCash.IsNegative() {
		return nil, validationError("initial cash must not be negative")
	}

	session := models.CashSession{
		UserID:      p.UserID,
		OpenedAt:    time.Now().UTC(),
		InitialCash: initialCash,
		Notes:       strings.TrimSpace(notes),
	}

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		active, err := activeSessionFor(tx, p.UserID)
		if err != nil {
			return err
		}
		if active != nil {
			return stateError("user already has an active cash session (%d)", active.ID)
		}

		if err := tx.Create(&session).Error; err != nil {
			if isUniqueViolation(err) {
				return stateError("user already has an active cash session")
			}
			return fmt.Errorf("failed to open cash session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cash session opened", zap.Uint("session_id", session.ID), zap.Uint("user_id", p.UserID))
	s.audit.Record(ctx, audit.NewEvent(ctx, p.UserID, nil, audit.ActionCashSessionOpened, map[string]interface{}{
		"session_id":   session.ID,
		"initial_cash": initialCash,
	}))
	return &session, nil
}

// CloseSession closes one of the principal's own active sessions
func (s *CashSessionService) CloseSession(ctx context.Context, p Principal, sessionID uint, finalCash decimal.Decimal, notes string) (*SessionCloseSummary, error) {
	if err := requirePermission(s.policy, p, authz.CloseCashSession); err != nil {
		return nil, err
	}
	if finalCash.IsNegative() {
		return nil, validationError("final cash must not be negative")
	}

	var summary *SessionCloseSummary
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var session models.CashSession
		if err := store.First(tx, &session, sessionID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFoundError("cash session %d not found", sessionID)
			}
			return err
		}
		if session.UserID != p.UserID {
			return forbiddenError("cash session %d belongs to another user", sessionID)
		}
		if !session.IsActive() {
			return stateError("cash session %d is already closed", sessionID)
		}

		updates := map[string]interface{}{
			"closed_at":  time.Now().UTC(),
			"final_cash": finalCash,
		}
		if n := strings.TrimSpace(notes); n != "" {
			updates["notes"] = n
		}

		n, err := store.UpdateIf(tx, &models.CashSession{}, sessionID,
			[]store.Condition{store.IsNull("closed_at")}, updates)
		if err != nil {
			return err
		}
		if n == 0 {
			return stateError("cash session %d is already closed", sessionID)
		}

		if err := store.First(tx, &session, sessionID); err != nil {
			return err
		}
		summary, err = summarizeSession(tx, &session)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cash session closed",
		zap.Uint("session_id", sessionID),
		zap.String("payments_total", summary.PaymentsTotal.StringFixed(2)))
	s.audit.Record(ctx, audit.NewEvent(ctx, p.UserID, nil, audit.ActionCashSessionClosed, map[string]interface{}{
		"session_id":     sessionID,
		"final_cash":     finalCash,
		"payments_total": summary.PaymentsTotal,
	}))
	return summary, nil
}

// GetActiveSession returns the user's most recent open session, or nil
func (s *CashSessionService) GetActiveSession(ctx context.Context, userID uint) (*models.CashSession, error) {
	return activeSessionFor(s.store.DB(ctx), userID)
}

// GetAnySystemActiveSession returns the most recently opened session still
// open anywhere in the system, or nil when every drawer is closed
func (s *CashSessionService) GetAnySystemActiveSession(ctx context.Context) (*models.CashSession, error) {
	return anyActiveSession(s.store.DB(ctx))
}

// ListSessions returns the principal's sessions, newest first
func (s *CashSessionService) ListSessions(ctx context.Context, p Principal) ([]models.CashSession, error) {
	if err := requirePermission(s.policy, p, authz.OpenCashSession); err != nil {
		return nil, err
	}

	var sessions []models.CashSession
	if err := s.store.DB(ctx).
		Where("user_id = ?", p.UserID).
		Order("opened_at DESC").Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list cash sessions: %w", err)
	}
	return sessions, nil
}

func activeSessionFor(tx *gorm.DB, userID uint) (*models.CashSession, error) {
	return firstActive(tx.Where("user_id = ?", userID))
}

func anyActiveSession(tx *gorm.DB) (*models.CashSession, error) {
	return firstActive(tx)
}

func firstActive(q *gorm.DB) (*models.CashSession, error) {
	var session models.CashSession
	err := q.Where("closed_at IS NULL").
		Order("opened_at DESC").Order("id DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load active cash session: %w", err)
	}
	return &session, nil
}

func summarizeSession(tx *gorm.DB, session *models.CashSession) (*SessionCloseSummary, error) {
	var payments []models.Payment
	if err := tx.Where("cash_session_id = ?", session.ID).Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load session payments: %w", err)
	}

	summary := &SessionCloseSummary{
		Session:          session,
		PaymentCount:     len(payments),
		PaymentsTotal:    decimal.Zero,
		PaymentsByMethod: make(map[models.PaymentMethod]decimal.Decimal),
	}
	for _, pay := range payments {
		summary.PaymentsTotal = summary.PaymentsTotal.Add(pay.Amount)
		summary.PaymentsByMethod[pay.Method] = summary.PaymentsByMethod[pay.Method].Add(pay.Amount)
	}
	return summary, nil
}
