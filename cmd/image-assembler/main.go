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
	assemblerInstance *services.ImageAssemblerFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleImagesToPDF", handleImagesToPDF)
}

func main() {}

// handleImagesToPDF builds a PDF from the requested images.
func handleImagesToPDF(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		assemblerInstance, initErr = services.NewImageAssembler(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Image assembler initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ImagesToPDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := assemblerInstance.Process(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), services.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "outputRef", req.OutputRef)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
