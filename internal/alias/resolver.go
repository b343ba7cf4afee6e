// Package alias resolves free-text product names to canonical product keys.
package alias

import (
	"context"
	"strings"

	"github.com/smallbiznis/usagehub/internal/alias/domain"
	"github.com/smallbiznis/usagehub/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// UnknownKey is the fallback key for absent product and user values.
const UnknownKey = "unknown"

// Map is a preloaded normalized-alias -> product-key lookup.
type Map map[string]string

// Loader reads the full alias table once per normalization run.
type Loader struct {
	repo repository.Repository[domain.ProductAlias]
}

func NewLoader(db *gorm.DB) *Loader {
	return &Loader{repo: repository.ProvideStore[domain.ProductAlias](db)}
}

func (l *Loader) LoadAliases(ctx context.Context) (Map, error) {
	rows, err := l.repo.Find(ctx, &domain.ProductAlias{})
	if err != nil {
		return nil, err
	}

	m := make(Map, len(rows))
	for _, row := range rows {
		m[normalize(row.Alias)] = row.ProductKey
	}
	return m, nil
}

// Resolve maps a raw product name to its canonical key. Unknown products are
// never rejected: the normalized input itself becomes the key.
func Resolve(productName any, m Map) string {
	name, ok := productName.(string)
	if !ok {
		return UnknownKey
	}
	normalized := normalize(name)
	if normalized == "" {
		return UnknownKey
	}
	if key, found := m[normalized]; found {
		return key
	}
	return normalized
}

// UserKey normalizes a user identifier, defaulting to "unknown".
func UserKey(user any) string {
	name, ok := user.(string)
	if !ok {
		return UnknownKey
	}
	normalized := normalize(name)
	if normalized == "" {
		return UnknownKey
	}
	return normalized
}

// ProjectKey normalizes a project identifier, defaulting to nil.
func ProjectKey(project any) *string {
	name, ok := project.(string)
	if !ok {
		return nil
	}
	normalized := normalize(name)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Module provides the alias loader.
var Module = fx.Module("alias",
	fx.Provide(NewLoader),
)
