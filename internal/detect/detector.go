// Package detect matches parsed file headers against the four known dataset
// shapes. Signatures overlap, so they are tested in a fixed priority order.
package detect

import (
	"strings"

	"github.com/smallbiznis/usagehub/internal/dataset/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
)

// Detection is the outcome of a successful header match.
type Detection struct {
	Type    domain.DatasetType
	Headers []string
}

// Detect parses the buffer and returns the first matching dataset type, or
// nil when no signature matches. A parse failure is returned as an error.
func Detect(buf []byte, filename string) (*Detection, error) {
	table, err := tabular.Parse(buf, filename)
	if err != nil {
		return nil, err
	}
	return DetectHeaders(table.Headers), nil
}

// DetectHeaders runs the signature checks against an already-parsed header
// list. Desktop must be tested before cloud: the desktop header set is a
// strict superset of the cloud one.
func DetectHeaders(headers []string) *Detection {
	normalized := make(map[string]bool, len(headers))
	for _, h := range headers {
		normalized[strings.ToLower(strings.TrimSpace(h))] = true
	}

	for _, check := range signatureChecks {
		if check.match(normalized) {
			return &Detection{Type: check.datasetType, Headers: headers}
		}
	}
	return nil
}

type signatureCheck struct {
	datasetType domain.DatasetType
	match       func(headers map[string]bool) bool
}

var signatureChecks = []signatureCheck{
	{domain.TypeUsageEvent, matchUsageEvent},
	{domain.TypeDesktopConsumption, matchDesktopConsumption},
	{domain.TypeCloudConsumption, matchCloudConsumption},
	{domain.TypeManualAdjustment, matchManualAdjustment},
}

func matchUsageEvent(headers map[string]bool) bool {
	if !headers["event date"] || !headers["user email"] || !headers["project name"] {
		return false
	}
	return headers["product / sub product"] || headers["product/sub product"] || headers["product"]
}

func consumptionCore(headers map[string]bool) bool {
	return headers["usagedate"] && headers["productname"] && headers["username"] && headers["tokensconsumed"]
}

func desktopOnly(headers map[string]bool) bool {
	return headers["usagehours"] || headers["usecount"] || headers["previous version"]
}

func matchDesktopConsumption(headers map[string]bool) bool {
	return consumptionCore(headers) && desktopOnly(headers)
}

func matchCloudConsumption(headers map[string]bool) bool {
	return consumptionCore(headers) && !desktopOnly(headers)
}

func matchManualAdjustment(headers map[string]bool) bool {
	return headers["usagedate"] && headers["transactiondate"] && headers["reasontype"] &&
		headers["productname"] && headers["tokensconsumed"]
}
