package adapter

import (
	"time"

	"github.com/bwmarrin/snowflake"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
)

// manualAdapter handles manual correction sheets. A product name of "n/a"
// is kept as-is here; normalization maps it to the literal product key
// instead of resolving it through the alias table.
type manualAdapter struct {
	genID *snowflake.Node
}

func (a *manualAdapter) ValidateHeaders(headers []string) bool {
	set := headerSet(headers)
	return set["usagedate"] && set["transactiondate"] && set["reasontype"] &&
		set["productname"] && set["tokensconsumed"]
}

func (a *manualAdapter) TransformToRaw(row tabular.Row, accountID, datasetID snowflake.ID) (rawdomain.Row, error) {
	reader := newFieldReader(row)

	rawDate, hasDate := reader.value("usagedate")
	if !hasDate {
		return nil, missingFieldsError([]string{"usagedate"})
	}

	usageDate, err := coerceDate(rawDate)
	if err != nil {
		return nil, invalidFieldError("usagedate", err)
	}

	var transactionDate *string
	if rawTxn, ok := reader.value("transactiondate"); ok {
		if coerced, err := coerceDate(rawTxn); err == nil {
			transactionDate = &coerced
		}
	}

	tokens, _ := reader.value("tokensconsumed")

	out := &rawdomain.ManualAdjustmentRow{
		ID:              a.genID.Generate(),
		DatasetID:       datasetID,
		AccountID:       accountID,
		UsageDate:       usageDate,
		TransactionDate: transactionDate,
		ReasonType:      reader.optionalStr("reasontype"),
		ProductName:     reader.optionalStr("productname"),
		ReasonComment:   reader.optionalStr("reasoncomment", "comment"),
		TokensConsumed:  coerceNumber(tokens),
		CreatedAt:       time.Now().UTC(),
	}
	out.Extra = reader.extra()
	return out, nil
}
