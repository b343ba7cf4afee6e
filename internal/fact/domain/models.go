// Package domain contains the canonical cross-type usage fact.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	"gorm.io/datatypes"
)

// UsageFact is one normalized usage record. Facts are append-only: created
// by the batch normalizer, never updated or deleted here.
type UsageFact struct {
	ID         snowflake.ID              `json:"id" gorm:"primaryKey"`
	AccountID  snowflake.ID              `json:"account_id" gorm:"not null;index"`
	DatasetID  snowflake.ID              `json:"dataset_id" gorm:"not null;index"`
	Date       string                    `json:"date" gorm:"type:text;not null;index"`
	SourceType datasetdomain.DatasetType `json:"source_type" gorm:"type:text;not null"`
	ProductKey string                    `json:"product_key" gorm:"type:text;not null;index"`
	UserKey    string                    `json:"user_key" gorm:"type:text;not null"`
	ProjectKey *string                   `json:"project_key,omitempty" gorm:"type:text"`
	Tokens     *float64                  `json:"tokens,omitempty"`
	Events     *float64                  `json:"events,omitempty"`
	Hours      *float64                  `json:"hours,omitempty"`
	UseCount   *float64                  `json:"use_count,omitempty"`
	Dims       datatypes.JSONMap         `json:"dims,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time                 `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (UsageFact) TableName() string { return "usage_facts" }
