package adapter

import (
	"time"

	"github.com/bwmarrin/snowflake"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
)

// desktopAdapter handles desktop license-server consumption exports.
type desktopAdapter struct {
	genID *snowflake.Node
}

func (a *desktopAdapter) ValidateHeaders(headers []string) bool {
	set := headerSet(headers)
	if !set["usagedate"] || !set["productname"] || !set["username"] || !set["tokensconsumed"] {
		return false
	}
	return set["usagehours"] || set["usecount"] || set["previous version"]
}

func (a *desktopAdapter) TransformToRaw(row tabular.Row, accountID, datasetID snowflake.ID) (rawdomain.Row, error) {
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
	hours, _ := reader.value("usagehours")
	useCount, _ := reader.value("usecount")

	out := &rawdomain.DesktopConsumptionRow{
		ID:             a.genID.Generate(),
		DatasetID:      datasetID,
		AccountID:      accountID,
		UsageDate:      usageDate,
		ProductName:    productName,
		ProductVersion: reader.optionalStr("productversion", "previous version"),
		UserName:       userName,
		MachineName:    reader.optionalStr("machinename"),
		LicenseServer:  reader.optionalStr("licenseservername", "licenseserver"),
		TokensConsumed: coerceNumber(tokens),
		UsageHours:     coerceNumber(hours),
		UseCount:       coerceNumber(useCount),
		CreatedAt:      time.Now().UTC(),
	}
	out.Extra = reader.extra()
	return out, nil
}
