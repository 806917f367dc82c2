package models

import "time"

// AuditLog is the persisted form of an audit event
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"not null;index" json:"actor_id"`
	OrderID   *uint     `gorm:"index" json:"order_id"`
	Action    string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	ClientIP  string    `gorm:"type:varchar(64)" json:"client_ip"`
	UserAgent string    `json:"user_agent"`
	RequestID string    `gorm:"type:varchar(64)" json:"request_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// All lists every model for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&DiningTable{},
		&Order{},
		&OrderItem{},
		&OrderCancellation{},
		&CashSession{},
		&Payment{},
		&AuditLog{},
	}
}
