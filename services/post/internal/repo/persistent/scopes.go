package persistent

import (
	"time"

	"tell-all/services/post/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scopes are the query-side counterparts of the entity predicates. They
// compose, so ValidToPublishView is always a subset of DraftView.

func DraftView(db *gorm.DB) *gorm.DB {
	return db.Where("posts.status = ?", string(entity.StatusDraft))
}

func PublishedView(db *gorm.DB) *gorm.DB {
	return db.Where("posts.status = ?", string(entity.StatusPublished))
}

func ValidToPublishView(db *gorm.DB) *gorm.DB {
	return db.Scopes(DraftView).
		Where("posts.summary IS NOT NULL AND posts.summary <> ''").
		Where("posts.body IS NOT NULL AND posts.body <> ''").
		Where("posts.cover_picture IS NOT NULL AND posts.cover_picture <> ''")
}

func ViewScope(v entity.View) func(*gorm.DB) *gorm.DB {
	switch v {
	case entity.ViewDraft:
		return DraftView
	case entity.ViewPublished:
		return PublishedView
	case entity.ViewValidToPublish:
		return ValidToPublishView
	default:
		return func(db *gorm.DB) *gorm.DB { return db }
	}
}

func OfType(t entity.PostType) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.type = ?", string(t))
	}
}

// OnPubDate matches the calendar day of day exactly.
func OnPubDate(day time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.pub_date = ?", datatypes.Date(dayOf(day)))
	}
}

func WithTagName(name string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Table("post_tags").
				Select("post_tags.post_id").
				Joins("JOIN tags ON tags.id = post_tags.tag_id").
				Where("tags.name = ?", name))
	}
}

// Search matches term case-insensitively against title or slug.
func Search(term string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + lower(term) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.slug) LIKE ?", pattern, pattern)
	}
}
