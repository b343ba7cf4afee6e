// Package adapter validates a dataset type's headers and transforms parsed
// rows into the matching persisted row shape.
package adapter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
	"gorm.io/datatypes"
)

// RowAdapter is implemented once per dataset type.
type RowAdapter interface {
	// ValidateHeaders re-checks this type's header signature before bulk
	// processing. It duplicates the detector's signature on purpose.
	ValidateHeaders(headers []string) bool

	// TransformToRaw converts one parsed row into the persisted row shape,
	// or returns a RowError naming what is wrong with it.
	TransformToRaw(row tabular.Row, accountID, datasetID snowflake.ID) (rawdomain.Row, error)
}

// RowError is a per-row transform failure. It never aborts a run; the
// orchestrator counts and samples these.
type RowError struct {
	Reason string
}

func (e *RowError) Error() string { return e.Reason }

func missingFieldsError(fields []string) *RowError {
	return &RowError{Reason: "missing required fields: " + strings.Join(fields, ", ")}
}

func invalidFieldError(field string, err error) *RowError {
	return &RowError{Reason: fmt.Sprintf("invalid %s: %v", field, err)}
}

// ForType returns the adapter for a dataset type.
func ForType(t datasetdomain.DatasetType, genID *snowflake.Node) (RowAdapter, error) {
	switch t {
	case datasetdomain.TypeUsageEvent:
		return &eventAdapter{genID: genID}, nil
	case datasetdomain.TypeCloudConsumption:
		return &cloudAdapter{genID: genID}, nil
	case datasetdomain.TypeDesktopConsumption:
		return &desktopAdapter{genID: genID}, nil
	case datasetdomain.TypeManualAdjustment:
		return &manualAdapter{genID: genID}, nil
	default:
		return nil, fmt.Errorf("no adapter for dataset type %q", t)
	}
}

// fieldReader resolves fields case-insensitively and whitespace-trimmed, and
// tracks which columns were consumed so the rest can be bagged.
type fieldReader struct {
	row      tabular.Row
	byKey    map[string]string
	consumed map[string]bool
}

func newFieldReader(row tabular.Row) *fieldReader {
	byKey := make(map[string]string, len(row))
	for header := range row {
		byKey[normalizeHeader(header)] = header
	}
	return &fieldReader{row: row, byKey: byKey, consumed: make(map[string]bool)}
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// value returns the first present, non-absent value among the candidate
// header names. Candidate names must be pre-normalized.
func (f *fieldReader) value(names ...string) (any, bool) {
	for _, name := range names {
		original, ok := f.byKey[name]
		if !ok {
			continue
		}
		f.consumed[name] = true
		if f.row[original] == nil {
			continue
		}
		return f.row[original], true
	}
	return nil, false
}

// str returns the trimmed string form of a field. Numeric cells are
// formatted without exponent so identifiers survive spreadsheet typing.
func (f *fieldReader) str(names ...string) (string, bool) {
	raw, ok := f.value(names...)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(stringify(raw))
	if s == "" {
		return "", false
	}
	return s, true
}

func (f *fieldReader) optionalStr(names ...string) *string {
	s, ok := f.str(names...)
	if !ok {
		return nil
	}
	return &s
}

// extra collects unconsumed columns into the open field bag, capped at
// MaxExtraKeys in sorted header order for determinism.
func (f *fieldReader) extra() datatypes.JSONMap {
	keys := make([]string, 0, len(f.row))
	for header := range f.row {
		if f.consumed[normalizeHeader(header)] {
			continue
		}
		keys = append(keys, header)
	}
	sort.Strings(keys)
	if len(keys) > rawdomain.MaxExtraKeys {
		keys = keys[:rawdomain.MaxExtraKeys]
	}

	if len(keys) == 0 {
		return nil
	}
	bag := make(datatypes.JSONMap, len(keys))
	for _, header := range keys {
		bag[header] = f.row[header]
	}
	return bag
}

// headerSet builds the normalized header lookup used by signature checks.
func headerSet(headers []string) map[string]bool {
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		set[normalizeHeader(h)] = true
	}
	return set
}
