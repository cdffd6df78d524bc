package job

import (
	"testing"

	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database and job store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Job{})

	return db, NewGormStore(db, logger.NewTestLogger())
}
