package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errGameNotFound  = apperr.NotFound("Content not found")
	errTitleTaken    = apperr.Conflict("Title already registered")
	errGameConflict  = apperr.Conflict("Game changed concurrently, try again")
	errGameBought    = apperr.Conflict("Game bought by an user")
	errGenreNotFound = apperr.New(apperr.ErrInvalid, "Genre not found")
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByID(ctx context.Context, id uuid.UUID) (models.Game, error) {
	var g models.Game
	err := s.db.WithContext(ctx).Preload("Genre").First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Game{}, errGameNotFound
	}
	if err != nil {
		return models.Game{}, apperr.Internal(err)
	}
	return g, nil
}

// FindBySlug only resolves games that are publicly listed.
func (s *GormStore) FindBySlug(ctx context.Context, slug string) (models.Game, error) {
	var g models.Game
	err := s.db.WithContext(ctx).
		Preload("Genre").
		Where("slug = ? AND disponibility = ?", slug, true).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Game{}, errGameNotFound
	}
	if err != nil {
		return models.Game{}, apperr.Internal(err)
	}
	return g, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]models.Game, error) {
	games := []models.Game{}
	if err := s.db.WithContext(ctx).Preload("Genre").Order("title ASC").Find(&games).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return games, nil
}

func (s *GormStore) ListAvailable(ctx context.Context, title string) ([]models.Game, error) {
	games := []models.Game{}
	tx := s.db.WithContext(ctx).Model(&models.Game{}).Where("disponibility = ?", true)
	tx = withTitle(tx, "title", title)
	if err := tx.Order("title ASC").Find(&games).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return games, nil
}

func (s *GormStore) ListRecentlyAdded(ctx context.Context, q Query) ([]models.Game, error) {
	games := []models.Game{}
	tx := s.db.WithContext(ctx).Model(&models.Game{}).Where("disponibility = ?", true)
	tx = withTitle(tx, "title", q.Title)
	tx = withLimit(tx, q.Limit)
	if err := tx.Order("created_at DESC").Order("id ASC").Find(&games).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return games, nil
}

// ListPurchaseHistory returns purchases of listed games, newest first, with
// the purchased game attached.
func (s *GormStore) ListPurchaseHistory(ctx context.Context, q Query) ([]models.UserGame, error) {
	history := []models.UserGame{}
	tx := s.db.WithContext(ctx).
		Model(&models.UserGame{}).
		Select("user_games.*").
		Joins("JOIN games ON games.id = user_games.game_id").
		Where("games.disponibility = ?", true).
		Preload("Game")
	tx = withTitle(tx, "games.title", q.Title)
	tx = withLimit(tx, q.Limit)
	err := tx.Order("user_games.purchase_date DESC").Order("user_games.game_id ASC").Find(&history).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return history, nil
}

// ListByPopularity orders listed games by number of purchases. Ties are
// broken by title, then id.
func (s *GormStore) ListByPopularity(ctx context.Context, q Query) ([]models.Game, error) {
	games := []models.Game{}
	tx := s.db.WithContext(ctx).
		Model(&models.Game{}).
		Select("games.*, COUNT(user_games.game_id) AS purchase_count").
		Joins("LEFT JOIN user_games ON user_games.game_id = games.id").
		Where("games.disponibility = ?", true).
		Group("games.id")
	tx = withTitle(tx, "games.title", q.Title)
	tx = withLimit(tx, q.Limit)
	err := tx.Order("purchase_count DESC").Order("games.title ASC").Order("games.id ASC").Find(&games).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return games, nil
}

func (s *GormStore) ListOwnedGames(ctx context.Context, userID uuid.UUID) ([]models.Game, error) {
	games := []models.Game{}
	err := s.db.WithContext(ctx).
		Model(&models.Game{}).
		Select("games.*").
		Joins("JOIN user_games ON user_games.game_id = games.id").
		Where("user_games.user_id = ?", userID).
		Order("user_games.purchase_date DESC").
		Find(&games).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return games, nil
}

func (s *GormStore) Create(ctx context.Context, g models.Game) (models.Game, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTitleFree(tx, g.Title, uuid.Nil); err != nil {
			return err
		}
		slug, err := slugFor(tx, g.Title, g.ID)
		if err != nil {
			return err
		}
		g.Slug = slug
		return tx.Omit(clause.Associations).Create(&g).Error
	})
	if err != nil {
		return models.Game{}, mapWriteError(err)
	}
	return g, nil
}

// Update replaces the editable fields of a game and recomputes its slug.
func (s *GormStore) Update(ctx context.Context, id uuid.UUID, g models.Game) (models.Game, error) {
	var updated models.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Game
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errGameNotFound
			}
			return err
		}
		if err := ensureTitleFree(tx, g.Title, id); err != nil {
			return err
		}
		slug, err := slugFor(tx, g.Title, id)
		if err != nil {
			return err
		}

		// A map keeps false/zero values in the UPDATE.
		res := tx.Model(&models.Game{}).Where("id = ?", id).Updates(map[string]interface{}{
			"title":         g.Title,
			"slug":          slug,
			"year":          g.Year,
			"price":         g.Price,
			"image_url":     g.ImageURL,
			"description":   g.Description,
			"disponibility": g.Disponibility,
			"genre_id":      g.GenreID,
		})
		if res.Error != nil {
			return res.Error
		}
		return tx.Preload("Genre").First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return models.Game{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete removes a game nobody has bought yet.
func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Game{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return errGameNotFound
		}

		var bought int64
		if err := tx.Model(&models.UserGame{}).Where("game_id = ?", id).Count(&bought).Error; err != nil {
			return err
		}
		if bought > 0 {
			return errGameBought
		}

		return tx.Delete(&models.Game{}, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		// a purchase landed between the count and the delete
		return errGameBought
	}
	return mapWriteError(err)
}

func (s *GormStore) CreatePurchase(ctx context.Context, userID, gameID uuid.UUID, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.UserGame{UserID: userID, GameID: gameID, PurchaseDate: at})
	if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
		return false, errGameNotFound
	}
	if res.Error != nil {
		return false, apperr.Internal(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func ensureTitleFree(tx *gorm.DB, title string, except uuid.UUID) error {
	var n int64
	q := tx.Model(&models.Game{}).Where("LOWER(title) = LOWER(?)", title)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errTitleTaken
	}
	return nil
}

func mapWriteError(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// lost a race on the title or slug index
		return errGameConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errGenreNotFound
	default:
		return apperr.Internal(err)
	}
}

func slugFor(tx *gorm.DB, title string, id uuid.UUID) (string, error) {
	return UniqueSlug(title, id, func(slug string) (bool, error) {
		var n int64
		err := tx.Model(&models.Game{}).Where("slug = ? AND id <> ?", slug, id).Count(&n).Error
		return n > 0, err
	})
}

func withTitle(tx *gorm.DB, column, title string) *gorm.DB {
	title = strings.TrimSpace(title)
	if title == "" {
		return tx
	}
	return tx.Where(column+" ILIKE ?", "%"+escapeLike(title)+"%")
}

func withLimit(tx *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return tx.Limit(limit)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
