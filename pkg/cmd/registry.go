package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/registry"
)

// NewRegistry builds the block registry with the full catalog registered
// against the given text model.
func NewRegistry(logger *slog.Logger, model blocks.TextModel) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	client := &http.Client{Timeout: 30 * time.Second}
	if err := blocks.RegisterAll(reg, model, client); err != nil {
		return nil, err
	}

	return reg, nil
}
