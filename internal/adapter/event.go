package adapter

import (
	"time"

	"github.com/bwmarrin/snowflake"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
)

// eventAdapter handles event-log exports. The event count of 1 per row is
// applied during normalization, not here.
type eventAdapter struct {
	genID *snowflake.Node
}

var eventProductHeaders = []string{"product / sub product", "product/sub product", "product"}

func (a *eventAdapter) ValidateHeaders(headers []string) bool {
	set := headerSet(headers)
	if !set["event date"] || !set["user email"] || !set["project name"] {
		return false
	}
	for _, h := range eventProductHeaders {
		if set[h] {
			return true
		}
	}
	return false
}

func (a *eventAdapter) TransformToRaw(row tabular.Row, accountID, datasetID snowflake.ID) (rawdomain.Row, error) {
	reader := newFieldReader(row)

	rawDate, hasDate := reader.value("event date")
	userEmail, hasEmail := reader.str("user email")
	productName, hasProduct := reader.str(eventProductHeaders...)

	var missing []string
	if !hasDate {
		missing = append(missing, "event date")
	}
	if !hasEmail {
		missing = append(missing, "user email")
	}
	if !hasProduct {
		missing = append(missing, "product")
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	eventDate, err := coerceDate(rawDate)
	if err != nil {
		return nil, invalidFieldError("event date", err)
	}

	out := &rawdomain.EventRow{
		ID:              a.genID.Generate(),
		DatasetID:       datasetID,
		AccountID:       accountID,
		EventDate:       eventDate,
		UserEmail:       userEmail,
		ProjectName:     reader.optionalStr("project name"),
		ProductName:     productName,
		FeatureCategory: reader.optionalStr("feature category", "feature_category"),
		ProjectID:       reader.optionalStr("project id", "project identifier", "project_id"),
		CreatedAt:       time.Now().UTC(),
	}
	out.Extra = reader.extra()
	return out, nil
}
