package server

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/storeforge/catsync/internal/config"
	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/migration"
	"github.com/storeforge/catsync/pkg/models"
)

// StoreAPI is the full per-store API surface the handlers consume:
// the mutation operations used by the migration engine plus the
// read-side catalog and connection-test calls.
type StoreAPI interface {
	migration.StoreClient

	TestConnection(ctx context.Context) (*bigcommerce.StoreInfo, error)
	CategoryTrees(ctx context.Context) ([]bigcommerce.Tree, error)
	AllCategories(ctx context.Context) ([]bigcommerce.Category, error)
	CategoriesByTree(ctx context.Context, treeID int) ([]bigcommerce.Category, error)
}

// ClientFactory builds a store API client from a stored connection.
// Tests substitute a factory returning mock clients.
type ClientFactory func(sc *models.StoreConnection) StoreAPI

// Server contains the server's shared dependencies.
type Server struct {
	// Config is the config for the server.
	Config *config.Config

	// DB is the database for the server.
	DB *gorm.DB

	// Logger is the logger for the server.
	Logger hclog.Logger

	// NewStoreClient builds API clients for store connections.
	NewStoreClient ClientFactory
}

// DefaultClientFactory builds real BigCommerce clients from the shared
// client configuration.
func DefaultClientFactory(cfg *config.BigCommerce, logger hclog.Logger) ClientFactory {
	return func(sc *models.StoreConnection) StoreAPI {
		return bigcommerce.NewClient(sc.StoreHash, sc.AccessToken, bigcommerce.Config{
			BaseURL:     cfg.BaseURL,
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
			PageSize:    cfg.PageSize,
			MaxAttempts: cfg.MaxAttempts,
		}, logger)
	}
}
