// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Jamen1147/socialApp/internal/domain"
)

// EncodeCursor turns a pagination cursor into an opaque token. A nil
// cursor encodes to the empty string.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := c.Date.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. A blank token yields a nil cursor.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	datePart, id, found := strings.Cut(string(raw), "|")
	if !found {
		return nil, fmt.Errorf("invalid cursor format")
	}
	date, err := time.Parse(time.RFC3339Nano, datePart)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor date: %w", err)
	}
	return &domain.Cursor{Date: date, ID: id}, nil
}
