package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chatrelay/backend/internal/infrastructure/persistence/models"
)

// setupTestDB opens an in-memory SQLite database with the messaging schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// An in-memory SQLite database exists per connection; keep the pool at
	// one connection so every query sees the same schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.ChannelModel{},
		&models.ContactModel{},
		&models.SessionModel{},
		&models.MessageModel{},
	)
	require.NoError(t, err)

	return db
}
