package adapter

import (
	"time"

	"github.com/bwmarrin/snowflake"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
)

// cloudAdapter handles per-user daily cloud consumption exports. Its header
// set is the desktop core without any desktop-only column.
type cloudAdapter struct {
	genID *snowflake.Node
}

func (a *cloudAdapter) ValidateHeaders(headers []string) bool {
	set := headerSet(headers)
	if !set["usagedate"] || !set["productname"] || !set["username"] || !set["tokensconsumed"] {
		return false
	}
	return !set["usagehours"] && !set["usecount"] && !set["previous version"]
}

func (a *cloudAdapter) TransformToRaw(row tabular.Row, accountID, datasetID snowflake.ID) (rawdomain.Row, error) {
	reader := newFieldReader(row)

	rawDate, hasDate := reader.value("usagedate")
	productName, hasProduct := reader.str("productname")
	userName, hasUser := reader.str("username")

	var missing []string
	if !hasDate {
		missing = append(missing, "usagedate")
	}
	if !hasProduct {
		missing = append(missing, "productname")
	}
	if !hasUser {
		missing = append(missing, "username")
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	usageDate, err := coerceDate(rawDate)
	if err != nil {
		return nil, invalidFieldError("usagedate", err)
	}

	tokens, _ := reader.value("tokensconsumed")

	out := &rawdomain.CloudConsumptionRow{
		ID:             a.genID.Generate(),
		DatasetID:      datasetID,
		AccountID:      accountID,
		UsageDate:      usageDate,
		ProductName:    productName,
		UserName:       userName,
		TokensConsumed: coerceNumber(tokens),
		CreatedAt:      time.Now().UTC(),
	}
	out.Extra = reader.extra()
	return out, nil
}
