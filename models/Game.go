package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Game struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string          `gorm:"not null" json:"title"`
	Slug          string          `gorm:"uniqueIndex;not null" json:"slug"`
	Year          int             `gorm:"not null" json:"year"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL      string          `gorm:"not null" json:"imageUrl"`
	Description   string          `gorm:"not null" json:"description"`
	Disponibility bool            `gorm:"not null;default:false" json:"disponibility"`
	GenreID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"genreId"`
	Genre         *Genre          `gorm:"foreignKey:GenreID;constraint:OnDelete:RESTRICT" json:"genre,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`

	// PurchaseCount is only filled by popularity queries.
	PurchaseCount int64 `gorm:"->;-:migration" json:"purchaseCount,omitempty"`
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// GameInput - used to validate admin create/update requests
type GameInput struct {
	Title         string  `json:"title" validate:"required,min=1,max=120"`
	Year          int     `json:"year" validate:"required,gte=1950,lte=2099"`
	Price         float64 `json:"price" validate:"gte=0,lte=99999999.99"`
	ImageURL      string  `json:"imageUrl" validate:"required"`
	Description   string  `json:"description" validate:"required"`
	Disponibility *bool   `json:"disponibility"`
	Genre         string  `json:"genre" validate:"required,uuid4"`
}

// ToGame builds the persisted fields of a game from a validated input.
// Slug and ID are owned by the catalog store.
func (in GameInput) ToGame() Game {
	g := Game{
		Title:       in.Title,
		Year:        in.Year,
		Price:       decimal.NewFromFloat(in.Price).Round(2),
		ImageURL:    in.ImageURL,
		Description: in.Description,
		GenreID:     uuid.MustParse(in.Genre),
	}
	if in.Disponibility != nil {
		g.Disponibility = *in.Disponibility
	}
	return g
}
