package persistent

import (
	"context"
	"time"

	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostFilter struct {
	View    entity.View
	Type    entity.PostType
	PubDate *time.Time
	Tag     string
	Search  string
	Limit   int
	Offset  int
}

type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	GetBySlug(ctx context.Context, slug string) (*entity.Post, error)
	Update(ctx context.Context, post *entity.Post, editedBy string) error
	DeleteBySlug(ctx context.Context, slug string) error
	Filter(ctx context.Context, filter PostFilter) ([]*entity.Post, int64, error)
	PublishDue(ctx context.Context, postType entity.PostType, day time.Time) ([]*entity.Post, int64, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListEdits(ctx context.Context, postID string) ([]entity.PostEdit, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	postModel := ToPostModel(post)
	if postModel.ID == "" {
		postModel.ID = uuid.New().String()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags := postModel.Tags
		postModel.Tags = nil

		if err := tx.Omit("Tags", "Author").Create(postModel).Error; err != nil {
			return err
		}

		if len(tags) > 0 {
			if err := tx.Model(postModel).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}

		return r.load(tx, postModel.ID, post)
	})
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*entity.Post, error) {
	var postModel model.PostModel
	if err := r.withRelations(r.db.WithContext(ctx)).Where("posts.slug = ?", slug).First(&postModel).Error; err != nil {
		return nil, err
	}
	return ToPostEntity(&postModel), nil
}

// Update writes the editable columns, replaces the tag set and appends an
// audit record in one transaction. Title, slug and status are never touched.
func (r *postRepository) Update(ctx context.Context, post *entity.Post, editedBy string) error {
	postModel := ToPostModel(post)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PostModel{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
			"summary":       postModel.Summary,
			"body":          postModel.Body,
			"cover_picture": postModel.CoverPicture,
			"type":          postModel.Type,
			"pub_date":      postModel.PubDate,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		tags := tx.Model(&model.PostModel{ID: post.ID}).Association("Tags")
		if len(postModel.Tags) == 0 {
			if err := tags.Clear(); err != nil {
				return err
			}
		} else if err := tags.Replace(postModel.Tags); err != nil {
			return err
		}

		if err := tx.Create(&model.PostEditModel{PostID: post.ID, EditedBy: editedBy}).Error; err != nil {
			return err
		}

		return r.load(tx, post.ID, post)
	})
}

// DeleteBySlug removes the post together with its tag links and edit history.
func (r *postRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postModel model.PostModel
		if err := tx.Select("id").Where("slug = ?", slug).First(&postModel).Error; err != nil {
			return err
		}

		if err := tx.Model(&postModel).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postModel.ID).Delete(&model.PostEditModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PostModel{}, "id = ?", postModel.ID).Error
	})
}

func (r *postRepository) Filter(ctx context.Context, filter PostFilter) ([]*entity.Post, int64, error) {
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&model.PostModel{}).Scopes(ViewScope(filter.View))
		if filter.Type != "" {
			query = query.Scopes(OfType(filter.Type))
		}
		if filter.PubDate != nil {
			query = query.Scopes(OnPubDate(*filter.PubDate))
		}
		if filter.Tag != "" {
			query = query.Scopes(WithTagName(filter.Tag))
		}
		if filter.Search != "" {
			query = query.Scopes(Search(filter.Search))
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.withRelations(base()).Order("posts.created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var postModels []model.PostModel
	if err := query.Find(&postModels).Error; err != nil {
		return nil, 0, err
	}

	return toPostEntities(postModels), total, nil
}

// PublishDue selects the tier's eligible drafts for day and flips them to
// published in one transaction. The UPDATE repeats the selection scopes
// rather than binding the selected ids, so its size does not grow with the
// number of posts and a row edited since selection is left alone.
func (r *postRepository) PublishDue(ctx context.Context, postType entity.PostType, day time.Time) ([]*entity.Post, int64, error) {
	var (
		posts    []*entity.Post
		affected int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		posts, err = findEligible(tx, postType, day)
		if err != nil || len(posts) == 0 {
			return err
		}

		res := tx.Model(&model.PostModel{}).
			Scopes(ValidToPublishView, OfType(postType), OnPubDate(day)).
			Update("status", string(entity.StatusPublished))
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return posts, affected, nil
}

// findEligible returns the tier's valid-to-publish drafts dated exactly day,
// with authors resolved in the same read.
func findEligible(db *gorm.DB, postType entity.PostType, day time.Time) ([]*entity.Post, error) {
	var postModels []model.PostModel
	err := db.Model(&model.PostModel{}).
		Joins("Author").
		Scopes(ValidToPublishView, OfType(postType), OnPubDate(day)).
		Find(&postModels).Error
	if err != nil {
		return nil, err
	}
	return toPostEntities(postModels), nil
}

func (r *postRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PostModel{}).Where("title = ?", title).Count(&count).Error
	return count > 0, err
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PostModel{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *postRepository) ListEdits(ctx context.Context, postID string) ([]entity.PostEdit, error) {
	var editModels []model.PostEditModel
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&editModels).Error; err != nil {
		return nil, err
	}

	edits := make([]entity.PostEdit, len(editModels))
	for i := range editModels {
		edits[i] = ToPostEditEntity(&editModels[i])
	}
	return edits, nil
}

func (r *postRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Joins("Author").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

func (r *postRepository) load(tx *gorm.DB, id string, into *entity.Post) error {
	var postModel model.PostModel
	if err := r.withRelations(tx).Where("posts.id = ?", id).First(&postModel).Error; err != nil {
		return err
	}
	*into = *ToPostEntity(&postModel)
	return nil
}

func toPostEntities(postModels []model.PostModel) []*entity.Post {
	posts := make([]*entity.Post, len(postModels))
	for i := range postModels {
		posts[i] = ToPostEntity(&postModels[i])
	}
	return posts
}
