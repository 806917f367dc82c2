// Package testutil provides the in-memory database and fixtures shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var userSeq atomic.Int64

// RequireTestEnvironmentOrSkip skips the test unless GO_ENV is "test".
// Use it for tests that need real external services.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Skipf("Skipping test: GO_ENV must be 'test' (current: %q)", env)
	}
}

// OpenTestDB creates a migrated in-memory sqlite database. The pool is pinned to
// one connection so every goroutine of the test sees the same database.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CreateUser inserts a staff member with the given role
func CreateUser(t *testing.T, db *gorm.DB, role models.Role) models.User {
	t.Helper()

	n := userSeq.Add(1)
	user := models.User{
		Auth0ID: fmt.Sprintf("auth0|%s-%d", role, n),
		Name:    fmt.Sprintf("%s %d", role, n),
		Email:   fmt.Sprintf("%s%d@pos.test", role, n),
		Role:    role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateDiningTable inserts a dining table with the given number
func CreateDiningTable(t *testing.T, db *gorm.DB, number int) models.DiningTable {
	t.Helper()

	table := models.DiningTable{Number: number, Name: fmt.Sprintf("Table %d", number)}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("Failed to create dining table: %v", err)
	}
	return table
}
