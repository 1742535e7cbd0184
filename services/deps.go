// backend/services/deps.go
package services

import (
	"github.com/openharvest/portal/backend/browser"
	"github.com/openharvest/portal/backend/database"
	"github.com/openharvest/portal/backend/scraper"
)

// Package-level seams for the store and fetch layers. Tests swap these
// for fakes; production code never reassigns them.
var (
	knownIdentifiers      = database.KnownIdentifiers
	insertPlaceholder     = database.InsertDatasetPlaceholder
	logDiscoveryRun       = database.LogDiscoveryRun
	getRecentRuns         = database.GetRecentDiscoveryRuns
	getDataset            = database.GetDataset
	listDatasetsForSync   = database.ListIdentifiersInCreationOrder
	updateDatasetMetadata = database.UpdateDatasetMetadata
	setDatasetSyncStatus  = database.SetDatasetSyncStatus
	updateRecordCount     = database.UpdateDeclaredRecordCount
	listDatasets          = database.ListDatasets
	getCatalogStats       = database.GetCatalogStats
	exportDatasets        = database.ExportDatasets

	fetchBytes = scraper.FetchBytes
	fetchJSON  = scraper.FetchJSON
	fetchRange = scraper.FetchRange

	newBrowserSession = browser.NewSession
)
