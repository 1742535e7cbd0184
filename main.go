// backend/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/database"
	"github.com/openharvest/portal/backend/handlers"
	"github.com/openharvest/portal/backend/services"
)

func main() {
	log.Println("Starting Open Data Portal Harvester...")

	configPath := "config/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "backend/config/config.yaml"
		if _, errFallback := os.Stat(configPath); os.IsNotExist(errFallback) {
			log.Fatalf("Config file not found at default paths. Error: %v", errFallback)
		}
	}

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	log.Printf("Configuration loaded. Server port: %s, DB name: %s, portal: %s",
		config.AppConfig.Server.Port, config.AppConfig.Database.DBName, config.AppConfig.Portal.BaseURL)

	if err := database.InitDB(config.AppConfig.Database); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.CloseDB()

	services.InitCache()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services.StartSchedulers(ctx)

	// --- Setup HTTP routes ---
	http.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.DB.Ping(); err != nil {
			http.Error(w, `{"status": "error", "message": "database connection error"}`, http.StatusInternalServerError)
			log.Printf("Health check failed: DB ping error: %v", err)
			return
		}
		fmt.Fprintln(w, `{"status": "ok", "message": "harvester backend is healthy"}`)
	})

	// Catalog reads
	http.HandleFunc("/api/datasets", handlers.ListDatasetsHandler)
	http.HandleFunc("/api/datasets/", handlers.DatasetSubtreeHandler) // detail, data, preview, refresh-cache, stats

	// Admin triggers
	http.HandleFunc("/api/admin/discover/", handlers.RunDiscoveryHandler)
	http.HandleFunc("/api/admin/sync-metadata", handlers.RunMetadataSyncHandler)
	http.HandleFunc("/api/admin/discovery-runs", handlers.DiscoveryRunsHandler)
	http.HandleFunc("/api/admin/export/datasets.csv", handlers.ExportCatalogHandler)

	serverAddr := ":" + config.AppConfig.Server.Port
	log.Printf("Server starting on http://localhost%s\n", serverAddr)
	if err := http.ListenAndServe(serverAddr, nil); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
