package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PostModel struct {
	ID           string          `gorm:"type:uuid;primary_key" json:"id"`
	Title        string          `gorm:"type:varchar(200);uniqueIndex;not null" json:"title"`
	Slug         string          `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
	Summary      *string         `gorm:"type:text" json:"summary"`
	Body         *string         `gorm:"type:text" json:"body"`
	CoverPicture *string         `gorm:"type:varchar(500)" json:"cover_picture"`
	Status       string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Type         string          `gorm:"type:varchar(20);not null;default:'freemium';index" json:"type"`
	PubDate      *datatypes.Date `gorm:"index" json:"pub_date"`
	AuthorID     string          `gorm:"type:uuid;not null;index" json:"author_id"`
	Author       *UserModel      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Tags         []TagModel      `gorm:"many2many:post_tags;joinForeignKey:PostID;joinReferences:TagID;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (p *PostModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type TagModel struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TagModel) TableName() string {
	return "tags"
}

func (t *TagModel) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

type PostEditModel struct {
	ID        string     `gorm:"type:uuid;primary_key" json:"id"`
	PostID    string     `gorm:"type:uuid;not null;index" json:"post_id"`
	Post      *PostModel `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	EditedBy  string     `gorm:"type:uuid;not null;index" json:"edited_by"`
	Editor    *UserModel `gorm:"foreignKey:EditedBy;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

func (PostEditModel) TableName() string {
	return "post_edits"
}

func (e *PostEditModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
