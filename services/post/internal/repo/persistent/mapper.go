package persistent

import (
	"strings"
	"time"

	"tell-all/pkg/clock"
	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/model"

	"gorm.io/datatypes"
)

func ToPostEntity(m *model.PostModel) *entity.Post {
	if m == nil {
		return nil
	}

	post := &entity.Post{
		ID:           m.ID,
		Title:        m.Title,
		Slug:         m.Slug,
		Summary:      m.Summary,
		Body:         m.Body,
		CoverPicture: m.CoverPicture,
		Status:       entity.PostStatus(m.Status),
		Type:         entity.PostType(m.Type),
		AuthorID:     m.AuthorID,
		Author:       ToAuthorEntity(m.Author),
		Tags:         make([]entity.Tag, 0, len(m.Tags)),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	if m.PubDate != nil {
		d := dayOf(time.Time(*m.PubDate))
		post.PubDate = &d
	}

	for i := range m.Tags {
		post.Tags = append(post.Tags, ToTagEntity(&m.Tags[i]))
	}

	return post
}

func ToPostModel(e *entity.Post) *model.PostModel {
	if e == nil {
		return nil
	}

	post := &model.PostModel{
		ID:           e.ID,
		Title:        e.Title,
		Slug:         e.Slug,
		Summary:      e.Summary,
		Body:         e.Body,
		CoverPicture: e.CoverPicture,
		Status:       string(e.Status),
		Type:         string(e.Type),
		PubDate:      toDate(e.PubDate),
		AuthorID:     e.AuthorID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}

	for _, t := range e.Tags {
		post.Tags = append(post.Tags, ToTagModel(t))
	}

	return post
}

func ToAuthorEntity(m *model.UserModel) *entity.Author {
	if m == nil || m.ID == "" {
		return nil
	}
	return &entity.Author{
		ID:       m.ID,
		Email:    m.Email,
		Username: m.Username,
	}
}

func ToTagEntity(m *model.TagModel) entity.Tag {
	return entity.Tag{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ToTagModel(e entity.Tag) model.TagModel {
	return model.TagModel{
		ID:        e.ID,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func ToPostEditEntity(m *model.PostEditModel) entity.PostEdit {
	return entity.PostEdit{
		ID:        m.ID,
		PostID:    m.PostID,
		EditedBy:  m.EditedBy,
		CreatedAt: m.CreatedAt,
	}
}

func toDate(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(dayOf(*t))
	return &d
}

func dayOf(t time.Time) time.Time {
	return clock.Day(t)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
