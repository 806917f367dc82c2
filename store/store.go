// Package store is the persistence boundary used by the services: a
// transactional scope and a compare-and-swap update primitive on top of gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// Store wraps a gorm handle
type Store struct {
	db *gorm.DB
}

// New creates a Store over db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns a handle bound to ctx
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Transaction runs fn inside a single database transaction. Every write made
// through tx commits together or not at all.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Condition is one guard of a conditional update: "column = value", or
// "column <> value" when Not is set. A nil Value guards on "column IS NULL".
type Condition struct {
	Column string
	Value  interface{}
	Not    bool
}

// Eq guards on column = value
func Eq(column string, value interface{}) Condition {
	return Condition{Column: column, Value: value}
}

// Ne guards on column <> value
func Ne(column string, value interface{}) Condition {
	return Condition{Column: column, Value: value, Not: true}
}

// IsNull guards on column IS NULL
func IsNull(column string) Condition {
	return Condition{Column: column}
}

// UpdateIf sets values on the row of model identified by id, but only while
// every condition still holds. It returns the number of rows matched; zero
// means another writer changed the row since it was read.
func UpdateIf(tx *gorm.DB, model interface{}, id uint, conditions []Condition, values map[string]interface{}) (int64, error) {
	q := tx.Model(model).Where("id = ?", id)
	for _, c := range conditions {
		switch {
		case c.Value == nil:
			q = q.Where(fmt.Sprintf("%s IS NULL", c.Column))
		case c.Not:
			q = q.Where(fmt.Sprintf("%s <> ?", c.Column), c.Value)
		default:
			q = q.Where(fmt.Sprintf("%s = ?", c.Column), c.Value)
		}
	}

	result := q.Updates(values)
	if result.Error != nil {
		return 0, fmt.Errorf("conditional update failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// First loads the row of model with the given id, mapping a miss to ErrNotFound
func First(tx *gorm.DB, dest interface{}, id uint) error {
	if err := tx.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load record: %w", err)
	}
	return nil
}
