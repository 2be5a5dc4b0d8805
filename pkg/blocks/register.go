package blocks

import (
	"fmt"
	"net/http"

	"github.com/blockdeck/blockdeck/pkg/registry"
)

// RegisterAll wires every catalog block to its handler. AI blocks go
// through the text model; network blocks share the HTTP client.
func RegisterAll(reg *registry.Registry, model TextModel, client *http.Client) error {
	handlers := map[string]registry.Handler{
		"summarize-text": SummarizeHandler(model),
		"extract-emails": ExtractEmailsHandler(model),
		"rewrite-prompt": RewriteHandler(model),
		"classify-input": ClassifyHandler(model),
		"translate-text": TranslateHandler(model),
		"trigger":        TriggerHandler(),
		"constant":       ConstantHandler(),
		"text-join":      TextJoinHandler(),
		"conditional":    ConditionalHandler(),
		"send-slack":     SendSlackHandler(client),
		"send-discord":   SendDiscordHandler(client),
		"fetch-url":      FetchURLHandler(client),
	}

	for _, def := range registry.Catalog() {
		handler, ok := handlers[def.ID]
		if !ok {
			return fmt.Errorf("no handler for catalog block '%s'", def.ID)
		}

		if err := reg.Register(def, handler); err != nil {
			return err
		}
	}

	return nil
}
