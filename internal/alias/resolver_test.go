package alias

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/usagehub/internal/alias/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestResolve(t *testing.T) {
	m := Map{"revit 2024": "revit", "acad": "autocad"}

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"exact hit", "revit 2024", "revit"},
		{"case and whitespace insensitive hit", "  Revit 2024 ", "revit"},
		{"miss keeps normalized input", "Unknown Tool", "unknown tool"},
		{"empty string", "", UnknownKey},
		{"whitespace only", "   ", UnknownKey},
		{"nil", nil, UnknownKey},
		{"non string", float64(4), UnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.value, m))
		})
	}
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "alice@example.com", UserKey(" Alice@Example.com "))
	assert.Equal(t, UnknownKey, UserKey(""))
	assert.Equal(t, UnknownKey, UserKey(nil))
}

func TestProjectKey(t *testing.T) {
	got := ProjectKey(" Tower ")
	require.NotNil(t, got)
	assert.Equal(t, "tower", *got)

	assert.Nil(t, ProjectKey(""))
	assert.Nil(t, ProjectKey(nil))
}

func TestLoader_LoadAliases(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:alias_loader?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.ProductAlias{}))

	require.NoError(t, conn.Create(&domain.ProductAlias{ID: 1, Alias: "revit 2024", ProductKey: "revit"}).Error)
	require.NoError(t, conn.Create(&domain.ProductAlias{ID: 2, Alias: "acad", ProductKey: "autocad"}).Error)

	loader := NewLoader(conn)
	m, err := loader.LoadAliases(context.Background())
	require.NoError(t, err)

	assert.Len(t, m, 2)
	assert.Equal(t, "revit", m["revit 2024"])
	assert.Equal(t, "autocad", m["acad"])
}
