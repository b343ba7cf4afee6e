package service

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/usagehub/internal/alias"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	factdomain "github.com/smallbiznis/usagehub/internal/fact/domain"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"gorm.io/datatypes"
)

// mapRow applies the type-specific fact mapping. A nil return means the raw
// row is missing a required field and should be skipped, not failed.
func (s *Service) mapRow(row rawdomain.Row, t datasetdomain.DatasetType, aliasMap alias.Map, accountID, datasetID snowflake.ID) *factdomain.UsageFact {
	switch typed := row.(type) {
	case *rawdomain.EventRow:
		return s.mapEventRow(typed, aliasMap, accountID, datasetID)
	case *rawdomain.CloudConsumptionRow:
		return s.mapCloudRow(typed, aliasMap, accountID, datasetID)
	case *rawdomain.DesktopConsumptionRow:
		return s.mapDesktopRow(typed, aliasMap, accountID, datasetID)
	case *rawdomain.ManualAdjustmentRow:
		return s.mapManualRow(typed, aliasMap, accountID, datasetID)
	default:
		return nil
	}
}

func (s *Service) mapEventRow(row *rawdomain.EventRow, aliasMap alias.Map, accountID, datasetID snowflake.ID) *factdomain.UsageFact {
	if row.EventDate == "" || row.UserEmail == "" {
		return nil
	}

	one := float64(1)
	dims := dimsFrom(row.Extra)
	putDim(dims, "feature_category", row.FeatureCategory)
	putDim(dims, "project_id", row.ProjectID)

	return &factdomain.UsageFact{
		ID:         s.genID.Generate(),
		AccountID:  accountID,
		DatasetID:  datasetID,
		Date:       row.EventDate,
		SourceType: datasetdomain.TypeUsageEvent,
		ProductKey: alias.Resolve(row.ProductName, aliasMap),
		UserKey:    alias.UserKey(row.UserEmail),
		ProjectKey: alias.ProjectKey(deref(row.ProjectName)),
		Events:     &one,
		Dims:       dims,
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Service) mapCloudRow(row *rawdomain.CloudConsumptionRow, aliasMap alias.Map, accountID, datasetID snowflake.ID) *factdomain.UsageFact {
	if row.UsageDate == "" || row.UserName == "" {
		return nil
	}

	return &factdomain.UsageFact{
		ID:         s.genID.Generate(),
		AccountID:  accountID,
		DatasetID:  datasetID,
		Date:       row.UsageDate,
		SourceType: datasetdomain.TypeCloudConsumption,
		ProductKey: alias.Resolve(row.ProductName, aliasMap),
		UserKey:    alias.UserKey(row.UserName),
		Tokens:     row.TokensConsumed,
		Dims:       dimsFrom(row.Extra),
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Service) mapDesktopRow(row *rawdomain.DesktopConsumptionRow, aliasMap alias.Map, accountID, datasetID snowflake.ID) *factdomain.UsageFact {
	if row.UsageDate == "" || row.UserName == "" {
		return nil
	}

	dims := dimsFrom(row.Extra)
	putDim(dims, "product_version", row.ProductVersion)
	putDim(dims, "machine_name", row.MachineName)
	putDim(dims, "license_server", row.LicenseServer)

	return &factdomain.UsageFact{
		ID:         s.genID.Generate(),
		AccountID:  accountID,
		DatasetID:  datasetID,
		Date:       row.UsageDate,
		SourceType: datasetdomain.TypeDesktopConsumption,
		ProductKey: alias.Resolve(row.ProductName, aliasMap),
		UserKey:    alias.UserKey(row.UserName),
		Tokens:     row.TokensConsumed,
		Hours:      row.UsageHours,
		UseCount:   row.UseCount,
		Dims:       dims,
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Service) mapManualRow(row *rawdomain.ManualAdjustmentRow, aliasMap alias.Map, accountID, datasetID snowflake.ID) *factdomain.UsageFact {
	if row.UsageDate == "" {
		return nil
	}

	// "n/a" is a deliberate marker on correction sheets, not a product name;
	// it bypasses alias resolution and keeps the literal key.
	var productKey string
	if row.ProductName != nil && strings.EqualFold(strings.TrimSpace(*row.ProductName), "n/a") {
		productKey = "n/a"
	} else {
		productKey = alias.Resolve(deref(row.ProductName), aliasMap)
	}

	dims := dimsFrom(row.Extra)
	putDim(dims, "reason_type", row.ReasonType)
	putDim(dims, "reason_comment", row.ReasonComment)
	putDim(dims, "transaction_date", row.TransactionDate)

	return &factdomain.UsageFact{
		ID:         s.genID.Generate(),
		AccountID:  accountID,
		DatasetID:  datasetID,
		Date:       row.UsageDate,
		SourceType: datasetdomain.TypeManualAdjustment,
		ProductKey: productKey,
		UserKey:    alias.UnknownKey,
		Tokens:     row.TokensConsumed,
		Dims:       dims,
		CreatedAt:  time.Now().UTC(),
	}
}

func dimsFrom(extra datatypes.JSONMap) datatypes.JSONMap {
	dims := make(datatypes.JSONMap, len(extra)+4)
	for k, v := range extra {
		dims[k] = v
	}
	return dims
}

func putDim(dims datatypes.JSONMap, key string, value *string) {
	if value == nil || *value == "" {
		return
	}
	dims[key] = *value
}

// deref returns an untyped nil for nil pointers so alias helpers treat the
// value as absent rather than an empty string.
func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
