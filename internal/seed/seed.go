package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	aliasdomain "github.com/smallbiznis/usagehub/internal/alias/domain"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	"github.com/smallbiznis/usagehub/pkg/db"
	"github.com/smallbiznis/usagehub/pkg/repository"
	"gorm.io/gorm"
)

const (
	defaultAccountName = "Main"
	defaultAccountSlug = "main"
)

// EnsureDefaultAccount seeds the default account for startup bootstrap.
func EnsureDefaultAccount(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	aliases := repository.ProvideStore[aliasdomain.ProductAlias](db)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureDefaultAccountTx(ctx, tx, node.Generate()); err != nil {
			return err
		}
		return ensureStarterAliases(ctx, aliases.WithTrx(tx), node)
	})
}

// EnsureDefaultAccountWithID seeds the default account with a fixed id so
// self-hosted deployments can pin DEFAULT_ACCOUNT across restarts.
func EnsureDefaultAccountWithID(db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	aliases := repository.ProvideStore[aliasdomain.ProductAlias](db)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureDefaultAccountTx(ctx, tx, id); err != nil {
			return err
		}
		return ensureStarterAliases(ctx, aliases.WithTrx(tx), node)
	})
}

func ensureDefaultAccountTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (datasetdomain.Account, error) {
	var account datasetdomain.Account
	err := tx.WithContext(ctx).Where("slug = ?", defaultAccountSlug).First(&account).Error
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, err
	}
	now := time.Now().UTC()
	account = datasetdomain.Account{
		ID:        id,
		Name:      defaultAccountName,
		Slug:      defaultAccountSlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

// ensureStarterAliases seeds a small alias set so common product name
// variants resolve out of the box. Alias management stays external.
func ensureStarterAliases(ctx context.Context, repo repository.Repository[aliasdomain.ProductAlias], node *snowflake.Node) error {
	type starter struct {
		Alias      string
		ProductKey string
	}

	starters := []starter{
		{"autocad lt", "autocad"},
		{"autodesk autocad", "autocad"},
		{"autodesk revit", "revit"},
		{"autodesk fusion 360", "fusion"},
		{"fusion 360", "fusion"},
	}

	for _, s := range starters {
		existing, err := repo.FindOne(ctx, &aliasdomain.ProductAlias{Alias: s.Alias})
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		now := time.Now().UTC()
		row := aliasdomain.ProductAlias{
			ID:         node.Generate(),
			Alias:      s.Alias,
			ProductKey: s.ProductKey,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.Create(ctx, &row); err != nil {
			// Another instance may have seeded the same alias between the
			// lookup and the insert.
			if db.IsDuplicateKeyErr(err) {
				continue
			}
			return err
		}
	}
	return nil
}
