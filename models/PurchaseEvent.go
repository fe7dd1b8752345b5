package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseCompleted is published after a checkout that bought at least one game.
type PurchaseCompleted struct {
	UserID      uuid.UUID       `json:"userId"`
	GameIDs     []uuid.UUID     `json:"gameIds"`
	Total       decimal.Decimal `json:"total"`
	PurchasedAt time.Time       `json:"purchasedAt"`
}
