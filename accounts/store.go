package accounts

import (
	"context"
	"errors"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errUserNotFound = apperr.NotFound("Resource not found")

// Store persists user accounts. Username and email lookups are
// case-insensitive.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UsernameTaken(ctx context.Context, username string, except uuid.UUID) (bool, error)
	EmailTaken(ctx context.Context, email string, except uuid.UUID) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	return u, notFound(s.db.WithContext(ctx).First(&u, "id = ?", id).Error)
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	return u, notFound(s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error)
}

func (s *GormStore) UsernameTaken(ctx context.Context, username string, except uuid.UUID) (bool, error) {
	return s.taken(ctx, "username", username, except)
}

func (s *GormStore) EmailTaken(ctx context.Context, email string, except uuid.UUID) (bool, error) {
	return s.taken(ctx, "email", email, except)
}

func (s *GormStore) taken(ctx context.Context, column, value string, except uuid.UUID) (bool, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER("+column+") = LOWER(?)", value)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, apperr.Internal(err)
	}
	return n > 0, nil
}

func (s *GormStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *GormStore) Create(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("Username or email in use")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("Username or email in use")
	}
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return errUserNotFound
	}
	return nil
}

// Delete removes the user. Purchase records go with it.
func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return errUserNotFound
	}
	return nil
}

func notFound(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errUserNotFound
	default:
		return apperr.Internal(err)
	}
}
