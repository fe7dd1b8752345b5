package genres

import (
	"context"
	"errors"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errGenreNotFound = apperr.NotFound("Content not found")
	errNameTaken     = apperr.Conflict("Genre already registered")
	errGenreInUse    = apperr.Conflict("Genre has games")
)

type Store interface {
	List(ctx context.Context) ([]models.Genre, error)
	Create(ctx context.Context, name string) (models.Genre, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (models.Genre, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) List(ctx context.Context) ([]models.Genre, error) {
	genres := []models.Genre{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return genres, nil
}

func (s *GormStore) Create(ctx context.Context, name string) (models.Genre, error) {
	genre := models.Genre{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, name, uuid.Nil); err != nil {
			return err
		}
		return tx.Create(&genre).Error
	})
	if err != nil {
		return models.Genre{}, mapError(err)
	}
	return genre, nil
}

func (s *GormStore) Rename(ctx context.Context, id uuid.UUID, name string) (models.Genre, error) {
	var genre models.Genre
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&genre, "id = ?", id).Error; err != nil {
			return err
		}
		if err := ensureNameFree(tx, name, id); err != nil {
			return err
		}
		genre.Name = name
		return tx.Model(&genre).Update("name", name).Error
	})
	if err != nil {
		return models.Genre{}, mapError(err)
	}
	return genre, nil
}

// Delete refuses to remove a genre that games still reference.
func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.Game{}).Where("genre_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return errGenreInUse
		}
		res := tx.Delete(&models.Genre{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errGenreNotFound
		}
		return nil
	})
	return mapError(err)
}

func ensureNameFree(tx *gorm.DB, name string, except uuid.UUID) error {
	var n int64
	q := tx.Model(&models.Genre{}).Where("LOWER(name) = LOWER(?)", name)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errNameTaken
	}
	return nil
}

func mapError(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errGenreNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errNameTaken
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errGenreInUse
	default:
		return apperr.Internal(err)
	}
}
