package models

import (
	"time"

	"github.com/google/uuid"
)

// UserGame is one completed purchase. The composite key makes a game
// purchasable at most once per user.
type UserGame struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	GameID       uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"gameId"`
	PurchaseDate time.Time `gorm:"not null;index" json:"purchaseDate"`
	User         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Game         *Game     `gorm:"foreignKey:GameID;constraint:OnDelete:RESTRICT" json:"game,omitempty"`
}

func (UserGame) TableName() string {
	return "user_games"
}
