package main

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"tell-all/pkg/logger"
	"tell-all/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:seed-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Tag{}))
	return db
}

func testOptions() options {
	return options{
		AdminUsername: "admin",
		AdminEmail:    "admin@tell-all.com",
		AdminPassword: "s3cret-pass",
		Tags:          []string{"golang", "opinion"},
	}
}

func TestSeedDatabase(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, seedDatabase(context.Background(), db, testOptions(), logger.NewWithWriters(io.Discard, io.Discard)))

	var admin models.User
	require.NoError(t, db.First(&admin, "username = ?", "admin").Error)
	assert.True(t, admin.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret-pass")))

	var names []string
	require.NoError(t, db.Model(&models.Tag{}).Order("name").Pluck("name", &names).Error)
	assert.Equal(t, []string{"golang", "opinion"}, names)
}

func TestSeedDatabase_Idempotent(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewWithWriters(io.Discard, io.Discard)

	require.NoError(t, seedDatabase(context.Background(), db, testOptions(), log))
	require.NoError(t, seedDatabase(context.Background(), db, testOptions(), log))

	var users, tags int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(2), tags)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"golang", "opinion"}, splitTags(" golang, ,opinion,golang"))
	assert.Empty(t, splitTags(""))
}
