package persistence

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Cursors encode the updated_at timestamp of the last workflow on a page.
// They are opaque to clients.

func EncodeCursor(t time.Time) string {
	return base64.URLEncoding.EncodeToString([]byte(t.UTC().Format(time.RFC3339Nano)))
}

func DecodeCursor(cursor string) (time.Time, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor: %w", err)
	}

	return t, nil
}
