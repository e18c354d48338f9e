// Package dbtest opens isolated in-memory SQLite databases carrying the
// finance schema for package tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a fresh database with every finance table migrated. A single
// connection backs it so concurrent tests serialize instead of hitting
// shared-cache table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.Finance()...))
	return conn
}

// SeedUser inserts a person row.
func SeedUser(t testing.TB, conn *gorm.DB, id, name string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Name: name, Email: id + "@lab.test"}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// SeedLab inserts a laboratory created by creatorID with the given members.
func SeedLab(t testing.TB, conn *gorm.DB, creatorID string, memberIDs ...string) *models.Laboratory {
	t.Helper()
	lab := &models.Laboratory{ID: uuid.New(), Name: "Lab " + creatorID, CreatorID: creatorID}
	require.NoError(t, conn.Create(lab).Error)
	for _, memberID := range memberIDs {
		member := models.LaboratoryMember{LaboratoryID: lab.ID, UserID: memberID, Role: enums.MemberRoleStudent}
		require.NoError(t, conn.Create(&member).Error)
		lab.Members = append(lab.Members, member)
	}
	return lab
}
