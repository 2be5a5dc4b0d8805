// Package blocks implements the marketplace's block handlers and the
// gated runner that executes them on behalf of a user.
package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/registry"
)

const (
	fetchTimeout  = 30 * time.Second
	fetchBodyCap  = 256 * 1024
	postTimeout   = 10 * time.Second
	triggerSignal = "triggered"
)

// TriggerHandler marks the start of a workflow. It takes no inputs and
// emits a signal other blocks can depend on.
func TriggerHandler() registry.Handler {
	return registry.HandlerFunc(func(_ context.Context, _ map[string]string) (map[string]models.Scalar, error) {
		return map[string]models.Scalar{"trigger": models.StringScalar(triggerSignal)}, nil
	})
}

// ConstantHandler echoes its configured value.
func ConstantHandler() registry.Handler {
	return registry.HandlerFunc(func(_ context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		return map[string]models.Scalar{"value": models.StringScalar(inputs["value"])}, nil
	})
}

// TextJoinHandler concatenates two texts with an optional separator.
func TextJoinHandler() registry.Handler {
	return registry.HandlerFunc(func(_ context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		combined := inputs["text1"] + inputs["separator"] + inputs["text2"]

		return map[string]models.Scalar{"combined": models.StringScalar(combined)}, nil
	})
}

// ConditionalHandler reports whether the text is non-empty, or contains the
// pattern when one is given.
func ConditionalHandler() registry.Handler {
	return registry.HandlerFunc(func(_ context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		text := inputs["text"]
		pattern := inputs["pattern"]

		match := strings.TrimSpace(text) != ""
		if pattern != "" {
			match = strings.Contains(text, pattern)
		}

		return map[string]models.Scalar{"match": models.BoolScalar(match)}, nil
	})
}

// FetchURLHandler performs a GET and returns the page body and status code.
func FetchURLHandler(client *http.Client) registry.Handler {
	if client == nil {
		client = &http.Client{}
	}

	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		url := strings.TrimSpace(inputs["url"])
		if url == "" {
			return nil, fmt.Errorf("fetch-url requires a url")
		}

		reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetch request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyCap))
		if err != nil {
			return nil, fmt.Errorf("failed to read fetch response: %w", err)
		}

		return map[string]models.Scalar{
			"body":       models.StringScalar(string(body)),
			"statusCode": models.NumberScalar(float64(resp.StatusCode)),
		}, nil
	})
}

// SendSlackHandler posts a message to a Slack incoming webhook.
func SendSlackHandler(client *http.Client) registry.Handler {
	return webhookPostHandler(client, "slack", "text")
}

// SendDiscordHandler posts a message to a Discord webhook.
func SendDiscordHandler(client *http.Client) registry.Handler {
	return webhookPostHandler(client, "discord", "content")
}

func webhookPostHandler(client *http.Client, service, messageField string) registry.Handler {
	if client == nil {
		client = &http.Client{}
	}

	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		url := strings.TrimSpace(inputs["webhookUrl"])
		if url == "" {
			return nil, fmt.Errorf("send-%s requires a webhook URL", service)
		}

		payload, err := json.Marshal(map[string]string{messageField: inputs["message"]})
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", service, err)
		}

		reqCtx, cancel := context.WithTimeout(ctx, postTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", service, err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s post failed: %w", service, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s webhook returned status %d", service, resp.StatusCode)
		}

		return map[string]models.Scalar{"status": models.StringScalar("sent")}, nil
	})
}
