// Package domain contains the four per-shape raw row models. Rows are
// persisted verbatim (after field coercion) and never updated.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MaxExtraKeys bounds the open field bag attached to each raw row. Columns
// beyond the cap are dropped in header order.
const MaxExtraKeys = 64

// Row is implemented by all four raw row shapes.
type Row interface {
	RowDate() string
	RowDatasetID() snowflake.ID
}

// EventRow is one line of an event-log export.
type EventRow struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	DatasetID       snowflake.ID      `json:"dataset_id" gorm:"not null;index"`
	AccountID       snowflake.ID      `json:"account_id" gorm:"not null;index"`
	EventDate       string            `json:"event_date" gorm:"type:text;not null"`
	UserEmail       string            `json:"user_email" gorm:"type:text;not null"`
	ProjectName     *string           `json:"project_name,omitempty" gorm:"type:text"`
	ProductName     string            `json:"product_name" gorm:"type:text;not null"`
	FeatureCategory *string           `json:"feature_category,omitempty" gorm:"type:text"`
	ProjectID       *string           `json:"project_id,omitempty" gorm:"type:text"`
	Extra           datatypes.JSONMap `json:"extra,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EventRow) TableName() string { return "usage_event_rows" }

func (r *EventRow) RowDate() string { return r.EventDate }
func (r *EventRow) RowDatasetID() snowflake.ID { return r.DatasetID }

// CloudConsumptionRow is one line of a per-user daily cloud consumption export.
type CloudConsumptionRow struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	DatasetID      snowflake.ID      `json:"dataset_id" gorm:"not null;index"`
	AccountID      snowflake.ID      `json:"account_id" gorm:"not null;index"`
	UsageDate      string            `json:"usage_date" gorm:"type:text;not null"`
	ProductName    string            `json:"product_name" gorm:"type:text;not null"`
	UserName       string            `json:"user_name" gorm:"type:text;not null"`
	TokensConsumed *float64          `json:"tokens_consumed,omitempty"`
	Extra          datatypes.JSONMap `json:"extra,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CloudConsumptionRow) TableName() string { return "cloud_consumption_rows" }

func (r *CloudConsumptionRow) RowDate() string { return r.UsageDate }
func (r *CloudConsumptionRow) RowDatasetID() snowflake.ID { return r.DatasetID }

// DesktopConsumptionRow is one line of a desktop license-server consumption export.
type DesktopConsumptionRow struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	DatasetID      snowflake.ID      `json:"dataset_id" gorm:"not null;index"`
	AccountID      snowflake.ID      `json:"account_id" gorm:"not null;index"`
	UsageDate      string            `json:"usage_date" gorm:"type:text;not null"`
	ProductName    string            `json:"product_name" gorm:"type:text;not null"`
	ProductVersion *string           `json:"product_version,omitempty" gorm:"type:text"`
	UserName       string            `json:"user_name" gorm:"type:text;not null"`
	MachineName    *string           `json:"machine_name,omitempty" gorm:"type:text"`
	LicenseServer  *string           `json:"license_server,omitempty" gorm:"type:text"`
	TokensConsumed *float64          `json:"tokens_consumed,omitempty"`
	UsageHours     *float64          `json:"usage_hours,omitempty"`
	UseCount       *float64          `json:"use_count,omitempty"`
	Extra          datatypes.JSONMap `json:"extra,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DesktopConsumptionRow) TableName() string { return "desktop_consumption_rows" }

func (r *DesktopConsumptionRow) RowDate() string { return r.UsageDate }
func (r *DesktopConsumptionRow) RowDatasetID() snowflake.ID { return r.DatasetID }

// ManualAdjustmentRow is one line of a manual correction sheet.
type ManualAdjustmentRow struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	DatasetID       snowflake.ID      `json:"dataset_id" gorm:"not null;index"`
	AccountID       snowflake.ID      `json:"account_id" gorm:"not null;index"`
	UsageDate       string            `json:"usage_date" gorm:"type:text;not null"`
	TransactionDate *string           `json:"transaction_date,omitempty" gorm:"type:text"`
	ReasonType      *string           `json:"reason_type,omitempty" gorm:"type:text"`
	ProductName     *string           `json:"product_name,omitempty" gorm:"type:text"`
	ReasonComment   *string           `json:"reason_comment,omitempty" gorm:"type:text"`
	TokensConsumed  *float64          `json:"tokens_consumed,omitempty"`
	Extra           datatypes.JSONMap `json:"extra,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ManualAdjustmentRow) TableName() string { return "manual_adjustment_rows" }

func (r *ManualAdjustmentRow) RowDate() string { return r.UsageDate }
func (r *ManualAdjustmentRow) RowDatasetID() snowflake.ID { return r.DatasetID }
