package models

import "time"

// DiningTable is a physical table orders on the TABLE channel are attached to
type DiningTable struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Number    int       `gorm:"uniqueIndex;not null" json:"number"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the DiningTable model
func (DiningTable) TableName() string {
	return "dining_tables"
}
