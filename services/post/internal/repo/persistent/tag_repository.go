package persistent

import (
	"context"

	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/model"

	"gorm.io/gorm"
)

type TagRepository interface {
	Create(ctx context.Context, tag *entity.Tag) error
	List(ctx context.Context) ([]entity.Tag, error)
	FindByNames(ctx context.Context, names []string) ([]entity.Tag, error)
	Exists(ctx context.Context, name string) (bool, error)
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *entity.Tag) error {
	tagModel := ToTagModel(*tag)
	if err := r.db.WithContext(ctx).Create(&tagModel).Error; err != nil {
		return err
	}
	*tag = ToTagEntity(&tagModel)
	return nil
}

func (r *tagRepository) List(ctx context.Context) ([]entity.Tag, error) {
	var tagModels []model.TagModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tagModels).Error; err != nil {
		return nil, err
	}
	return toTagEntities(tagModels), nil
}

func (r *tagRepository) FindByNames(ctx context.Context, names []string) ([]entity.Tag, error) {
	if len(names) == 0 {
		return []entity.Tag{}, nil
	}

	var tagModels []model.TagModel
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&tagModels).Error; err != nil {
		return nil, err
	}
	return toTagEntities(tagModels), nil
}

func (r *tagRepository) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TagModel{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

func toTagEntities(tagModels []model.TagModel) []entity.Tag {
	tags := make([]entity.Tag, len(tagModels))
	for i := range tagModels {
		tags[i] = ToTagEntity(&tagModels[i])
	}
	return tags
}
