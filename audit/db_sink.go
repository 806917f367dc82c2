package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"gorm.io/gorm"
)

// DBSink stores events in the audit_logs table
type DBSink struct {
	db *gorm.DB
}

// NewDBSink creates a sink over db
func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

// Write implements Sink
func (s *DBSink) Write(ctx context.Context, event Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := models.AuditLog{
		ActorID:   event.ActorID,
		OrderID:   event.OrderID,
		Action:    event.Action,
		Details:   string(details),
		ClientIP:  event.ClientMeta.IP,
		UserAgent: event.ClientMeta.UserAgent,
		RequestID: event.ClientMeta.RequestID,
		CreatedAt: event.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
