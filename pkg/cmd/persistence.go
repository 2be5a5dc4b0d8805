// Package cmd wires shared infrastructure for the binaries: persistence,
// event bus, and block registry construction from CLI configuration.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/blockdeck/blockdeck/pkg/persistence"
	"github.com/blockdeck/blockdeck/pkg/persistence/file"
	"github.com/blockdeck/blockdeck/pkg/persistence/redis"
)

// NewPersistence picks the backend from the database URL scheme. file:// is
// the default when the scheme is missing or unknown.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceScheme(databaseURL) {
	case "redis", "rediss":
		logger.InfoContext(ctx, "Using redis persistence")

		return redis.NewPersistence(databaseURL)
	default:
		logger.InfoContext(ctx, "Using file persistence", "path", strings.TrimPrefix(databaseURL, "file://"))

		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceScheme(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
