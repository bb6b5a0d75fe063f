//go:build wireinject
// +build wireinject

package inventory

import (
	"github.com/google/wire"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/internal/inventory/delivery/http"
	"github.com/fabtrack/sheetstock/internal/inventory/domain"
	"github.com/fabtrack/sheetstock/internal/inventory/repository"
	"github.com/fabtrack/sheetstock/internal/inventory/usecase/command"
	"github.com/fabtrack/sheetstock/internal/inventory/usecase/query"
)

// ProvideInventoryRepository provides the inventory repository
func ProvideInventoryRepository(store docstore.Store) domain.InventoryRepository {
	return repository.NewDocstoreInventoryRepository(store)
}

// ProvideMaterialRepository provides the material catalog repository
func ProvideMaterialRepository(store docstore.Store) domain.MaterialRepository {
	return repository.NewDocstoreMaterialRepository(store)
}

// Command Handlers Providers
func ProvideAllocateStockHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *command.AllocateStockHandler {
	return command.NewAllocateStockHandler(repo, materials)
}

func ProvideReceiveGroupHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *command.ReceiveGroupHandler {
	return command.NewReceiveGroupHandler(repo, materials)
}

func ProvideMarkReceivedHandler(repo domain.InventoryRepository) *command.MarkReceivedHandler {
	return command.NewMarkReceivedHandler(repo)
}

func ProvideDeleteGroupHandler(repo domain.InventoryRepository) *command.DeleteGroupHandler {
	return command.NewDeleteGroupHandler(repo)
}

func ProvideAdjustUnitsHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *command.AdjustUnitsHandler {
	return command.NewAdjustUnitsHandler(repo, materials)
}

// Query Handlers Providers
func ProvideLedgerHandler(repo domain.InventoryRepository) *query.LedgerHandler {
	return query.NewLedgerHandler(repo)
}

func ProvideStockSummaryHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *query.StockSummaryHandler {
	return query.NewStockSummaryHandler(repo, materials)
}

func ProvideListUnitsHandler(repo domain.InventoryRepository) *query.ListUnitsHandler {
	return query.NewListUnitsHandler(repo)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideInventoryRepository,
	ProvideMaterialRepository,
)

var CommandHandlerSet = wire.NewSet(
	ProvideAllocateStockHandler,
	ProvideReceiveGroupHandler,
	ProvideMarkReceivedHandler,
	ProvideDeleteGroupHandler,
	ProvideAdjustUnitsHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideLedgerHandler,
	ProvideStockSummaryHandler,
	ProvideListUnitsHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	CommandHandlerSet,
	QueryHandlerSet,
)

// InitializeHTTPHandler initializes the HTTP handler with all dependencies
func InitializeHTTPHandler(store docstore.Store) (*http.StockHandler, error) {
	wire.Build(
		AllHandlersSet,
		http.NewStockHandlerWithDI,
	)
	return nil, nil
}
