// Package domain contains the dataset record and its processing lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DatasetType identifies one of the four known file shapes.
type DatasetType string

const (
	TypeUsageEvent         DatasetType = "usage_event"
	TypeCloudConsumption   DatasetType = "cloud_consumption"
	TypeDesktopConsumption DatasetType = "desktop_consumption"
	TypeManualAdjustment   DatasetType = "manual_adjustment"
)

// Valid reports whether t is one of the known dataset types.
func (t DatasetType) Valid() bool {
	switch t {
	case TypeUsageEvent, TypeCloudConsumption, TypeDesktopConsumption, TypeManualAdjustment:
		return true
	}
	return false
}

type DatasetStatus string

const (
	StatusQueued    DatasetStatus = "queued"
	StatusProcessed DatasetStatus = "processed"
	StatusFailed    DatasetStatus = "failed"
)

// Dataset is one uploaded usage file. It is created queued by the upload
// intake and written once more by the ingestion run with a terminal status.
type Dataset struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey"`
	AccountID        snowflake.ID      `json:"account_id" gorm:"not null;index"`
	DatasetType      *DatasetType      `json:"dataset_type,omitempty" gorm:"type:text"`
	OriginalFilename string            `json:"original_filename" gorm:"type:text;not null"`
	StoragePath      string            `json:"storage_path" gorm:"type:text;not null"`
	Status           DatasetStatus     `json:"status" gorm:"type:text;not null;default:'queued'"`
	DetectedHeaders  datatypes.JSON    `json:"detected_headers,omitempty" gorm:"type:jsonb"`
	MinDate          *string           `json:"min_date,omitempty" gorm:"type:text"`
	MaxDate          *string           `json:"max_date,omitempty" gorm:"type:text"`
	RowCount         *int64            `json:"row_count,omitempty"`
	ErrorMessage     *string           `json:"error_message,omitempty" gorm:"type:text"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Dataset) TableName() string { return "datasets" }

// Account is the owning tenant of datasets. Account management is external;
// this table exists so a fresh install has a referenceable default account.
type Account struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	IsDefault bool         `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Account) TableName() string { return "accounts" }
