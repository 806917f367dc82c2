package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OpenSessionRequest represents the request body for opening a cash session
type OpenSessionRequest struct {
	InitialCash decimal.Decimal `json:"initial_cash"`
	Notes       string          `json:"notes"`
}

// CloseSessionRequest represents the request body for closing a cash session
type CloseSessionRequest struct {
	FinalCash decimal.Decimal `json:"final_cash"`
	Notes     string          `json:"notes"`
}

// CashSessionController serves the cash drawer endpoints
type CashSessionController struct {
	sessions *services.CashSessionService
	logger   *zap.Logger
}

// NewCashSessionController creates a cash session controller
func NewCashSessionController(sessions *services.CashSessionService, logger *zap.Logger) *CashSessionController {
	return &CashSessionController{sessions: sessions, logger: logger}
}

// OpenSession handles POST /api/v1/cash-sessions
func (ctl *CashSessionController) OpenSession(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	session, err := ctl.sessions.OpenSession(c.Request.Context(), p, req.InitialCash, req.Notes)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondCreated(c, session)
}

// CloseSession handles POST /api/v1/cash-sessions/:id/close
func (ctl *CashSessionController) CloseSession(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	sessionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	summary, err := ctl.sessions.CloseSession(c.Request.Context(), p, sessionID, req.FinalCash, req.Notes)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, summary)
}

// GetActiveSession handles GET /api/v1/cash-sessions/active
func (ctl *CashSessionController) GetActiveSession(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	session, err := ctl.sessions.GetActiveSession(c.Request.Context(), p.UserID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	// data is null when the caller has no open drawer
	respondOK(c, session)
}

// ListSessions handles GET /api/v1/cash-sessions
func (ctl *CashSessionController) ListSessions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	sessions, err := ctl.sessions.ListSessions(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, sessions)
}
