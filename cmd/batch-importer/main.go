package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/services"
)

var (
	importerInstance *services.BatchImporterFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleImport", handleImport)
}

func main() {}

// handleImport is the HTTP handler for batch imports.
func handleImport(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		importerInstance, initErr = services.NewBatchImporter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Batch importer initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := importerInstance.Process(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), services.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "bucket", req.Bucket)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
