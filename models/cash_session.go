package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashSession is a cashier's open drawer period. A nil ClosedAt means active.
type CashSession struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index:idx_cash_sessions_active_user,unique,where:closed_at IS NULL" json:"user_id"`
	User        User             `gorm:"foreignKey:UserID" json:"-"`
	OpenedAt    time.Time        `gorm:"not null" json:"opened_at"`
	ClosedAt    *time.Time       `gorm:"index" json:"closed_at"`
	InitialCash decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"initial_cash"`
	FinalCash   *decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_cash"`
	Notes       string           `gorm:"type:text" json:"notes"`
}

// TableName specifies the table name for the CashSession model
func (CashSession) TableName() string {
	return "cash_sessions"
}

// IsActive reports whether the session is still open
func (s *CashSession) IsActive() bool {
	return s.ClosedAt == nil
}
