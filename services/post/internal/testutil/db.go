// Package testutil opens throwaway sqlite databases with the post schema.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"tell-all/services/post/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:post-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), seq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&model.UserModel{}, &model.TagModel{}, &model.PostModel{}, &model.PostEditModel{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return gdb
}

func SeedUser(t *testing.T, db *gorm.DB, email string) model.UserModel {
	t.Helper()

	user := model.UserModel{
		ID:       uuid.New().String(),
		Email:    email,
		Username: email,
		IsAdmin:  true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func SeedTag(t *testing.T, db *gorm.DB, name string) model.TagModel {
	t.Helper()

	tag := model.TagModel{Name: name}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("failed to seed tag: %v", err)
	}
	return tag
}

// PostSeed describes a post row. Zero fields fall back to a complete
// freemium draft.
type PostSeed struct {
	Title        string
	Status       string
	Type         string
	PubDate      *time.Time
	Summary      *string
	Body         *string
	CoverPicture *string
	Incomplete   bool
}

func SeedPost(t *testing.T, db *gorm.DB, author model.UserModel, seed PostSeed) model.PostModel {
	t.Helper()

	if seed.Title == "" {
		seed.Title = "post-" + uuid.New().String()
	}
	if seed.Status == "" {
		seed.Status = "draft"
	}
	if seed.Type == "" {
		seed.Type = "freemium"
	}
	if !seed.Incomplete {
		if seed.Summary == nil {
			seed.Summary = Str("summarized")
		}
		if seed.Body == nil {
			seed.Body = Str("<h1>Body</h1>")
		}
		if seed.CoverPicture == nil {
			seed.CoverPicture = Str("cover-picture/cover.png")
		}
	}

	post := model.PostModel{
		Title:        seed.Title,
		Slug:         seed.Title,
		Summary:      seed.Summary,
		Body:         seed.Body,
		CoverPicture: seed.CoverPicture,
		Status:       seed.Status,
		Type:         seed.Type,
		AuthorID:     author.ID,
	}
	if seed.PubDate != nil {
		d := datatypes.Date(*seed.PubDate)
		post.PubDate = &d
	}

	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}
	return post
}

func CountStatus(t *testing.T, db *gorm.DB, status string) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&model.PostModel{}).Where("status = ?", status).Count(&count).Error; err != nil {
		t.Fatalf("failed to count posts: %v", err)
	}
	return count
}

func Str(s string) *string {
	return &s
}

// Date is midnight UTC of the given calendar day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
