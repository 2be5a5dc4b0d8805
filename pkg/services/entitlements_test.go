package services

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeck/blockdeck/pkg/billing"
	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/registry"
)

func TestEntitlementsForUser(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, blocks.RegisterAll(reg, blocks.NewDemoModel(), http.DefaultClient))

	client := billing.NewDemoClient(false)
	client.Grant("user-1", "summarize_text")

	svc := NewEntitlements(client, reg)

	report, err := svc.ForUser(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, report.Entitlements["summarize_text"])
	assert.False(t, report.Entitlements["translate_text"])
	// Free utility blocks are always granted.
	assert.True(t, report.Entitlements["free"])
}
