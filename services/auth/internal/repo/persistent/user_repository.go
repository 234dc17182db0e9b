package persistent

import (
	"context"

	"tell-all/services/auth/internal/entity"
	"tell-all/services/auth/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tables owned by the post service that reference users.
const (
	postsTable     = "posts"
	postTagsTable  = "post_tags"
	postEditsTable = "post_edits"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	if userModel.ID == "" {
		userModel.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(userModel).Error; err != nil {
		return err
	}
	*user = *ToUserEntity(userModel)
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&userModel).Error; err != nil {
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error; err != nil {
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&userModel).Error; err != nil {
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

// Delete removes the user, every post they authored and all edit history
// touching either, in one transaction.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authored := "SELECT id FROM " + postsTable + " WHERE author_id = ?"

		if err := tx.Exec("DELETE FROM "+postEditsTable+" WHERE edited_by = ? OR post_id IN ("+authored+")", id, id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+postTagsTable+" WHERE post_id IN ("+authored+")", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+postsTable+" WHERE author_id = ?", id).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.UserModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
