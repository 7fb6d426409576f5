// Package export implements the command that writes a category
// comparison to a JSON file without running the server.
package export

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/storeforge/catsync/internal/cmd/base"
	"github.com/storeforge/catsync/internal/config"
	"github.com/storeforge/catsync/internal/db"
	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/catalog"
	"github.com/storeforge/catsync/pkg/models"
)

type Command struct {
	*base.Command

	// Fs is swapped for an in-memory filesystem in tests.
	Fs afero.Fs

	flagConfig string
	flagSource uint64
	flagTarget uint64
	flagOut    string
}

func (c *Command) Synopsis() string {
	return "Compare two stores and write the result to a JSON file"
}

func (c *Command) Help() string {
	return `Usage: catsync export -source=<id> -target=<id> [options]

  Fetch both stores' category trees, diff them, and write the full
  comparison to a JSON file.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("export", flag.ExitOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to HCL configuration file",
	)
	f.Uint64Var(
		&c.flagSource, "source", 0,
		"Source store connection ID",
	)
	f.Uint64Var(
		&c.flagTarget, "target", 0,
		"Target store connection ID",
	)
	f.StringVar(
		&c.flagOut, "out", "",
		"Output file path (default: category-comparison-<timestamp>.json)",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagSource == 0 || c.flagTarget == 0 {
		c.UI.Error("both -source and -target store IDs are required")
		return 1
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}

	cfg := config.Default()
	if c.flagConfig != "" {
		loaded, err := config.NewConfig(c.flagConfig)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
			return 1
		}
		cfg = loaded
	}

	log := c.Log.Named("export")
	log.SetLevel(hclog.LevelFromString(cfg.LogLevel))

	database, err := db.NewDB(cfg.Database, log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to database: %v", err))
		return 1
	}

	factory := server.DefaultClientFactory(cfg.BigCommerce, log)
	ctx := context.Background()

	sourceCats, err := c.fetchCategories(ctx, database, factory, uint(c.flagSource))
	if err != nil {
		c.UI.Error(fmt.Sprintf("error fetching source categories: %v", err))
		return 1
	}
	targetCats, err := c.fetchCategories(ctx, database, factory, uint(c.flagTarget))
	if err != nil {
		c.UI.Error(fmt.Sprintf("error fetching target categories: %v", err))
		return 1
	}

	comparison := catalog.Compare(sourceCats, targetCats)

	out := c.flagOut
	if out == "" {
		out = fmt.Sprintf("category-comparison-%s.json", time.Now().Format("20060102-150405"))
	}

	raw, err := json.MarshalIndent(comparison, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("error encoding comparison: %v", err))
		return 1
	}
	if err := afero.WriteFile(c.Fs, out, raw, 0o644); err != nil {
		c.UI.Error(fmt.Sprintf("error writing %s: %v", out, err))
		return 1
	}

	c.UI.Info(fmt.Sprintf("Wrote comparison to %s", out))
	c.UI.Info(fmt.Sprintf(
		"  source=%d target=%d missing=%d updated=%d deleted=%d unchanged=%d",
		c.flagSource, c.flagTarget,
		comparison.Summary.MissingCount, comparison.Summary.UpdatedCount,
		comparison.Summary.DeletedCount, comparison.Summary.UnchangedCount))

	return 0
}

func (c *Command) fetchCategories(
	ctx context.Context,
	database *gorm.DB,
	factory server.ClientFactory,
	id uint,
) ([]bigcommerce.Category, error) {
	sc := &models.StoreConnection{ID: id}
	if err := sc.Get(database); err != nil {
		return nil, fmt.Errorf("store connection %d not found", id)
	}

	client := factory(sc)
	if sc.TreeID > 0 {
		return client.CategoriesByTree(ctx, sc.TreeID)
	}
	return client.AllCategories(ctx)
}
