// Package domain contains the read-only product alias mapping. Alias
// management is owned by the product catalog; this subsystem only reads it.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ProductAlias maps a free-text product name (stored normalized: trimmed,
// lower-cased) to a canonical product key.
type ProductAlias struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Alias      string       `json:"alias" gorm:"type:text;not null;uniqueIndex"`
	ProductKey string       `json:"product_key" gorm:"type:text;not null"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ProductAlias) TableName() string { return "product_aliases" }
