package entity

import "time"

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// PostType is the content tier. Each tier is promoted by its own scheduler job.
type PostType string

const (
	TypeFreemium PostType = "freemium"
	TypePremium  PostType = "premium"
)

func (t PostType) Valid() bool {
	return t == TypeFreemium || t == TypePremium
}

// View names a read-side slice of the post collection.
type View int

const (
	ViewAll View = iota
	ViewDraft
	ViewPublished
	ViewValidToPublish
)

type Author struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Post struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Summary      *string    `json:"summary"`
	Body         *string    `json:"body"`
	CoverPicture *string    `json:"cover_picture"`
	Status       PostStatus `json:"status"`
	Type         PostType   `json:"type"`
	PubDate      *time.Time `json:"pub_date"`
	AuthorID     string     `json:"author_id"`
	Author       *Author    `json:"author,omitempty"`
	Tags         []Tag      `json:"tags"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (p *Post) IsDraft() bool {
	return p.Status == StatusDraft
}

func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// IsValidToPublish mirrors the ValidToPublishView query: a draft whose
// summary, body and cover picture are all present.
func (p *Post) IsValidToPublish() bool {
	return p.IsDraft() && present(p.Summary) && present(p.Body) && present(p.CoverPicture)
}

// Matches reports whether p belongs to v.
func (p *Post) Matches(v View) bool {
	switch v {
	case ViewDraft:
		return p.IsDraft()
	case ViewPublished:
		return p.IsPublished()
	case ViewValidToPublish:
		return p.IsValidToPublish()
	default:
		return true
	}
}

func (p *Post) AuthorEmail() string {
	if p.Author == nil {
		return ""
	}
	return p.Author.Email
}

func (p *Post) TagNames() []string {
	names := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		names[i] = t.Name
	}
	return names
}

// PostEdit is an append-only audit record of a successful edit.
type PostEdit struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	EditedBy  string    `json:"edited_by"`
	CreatedAt time.Time `json:"created_at"`
}

func present(s *string) bool {
	return s != nil && *s != ""
}
