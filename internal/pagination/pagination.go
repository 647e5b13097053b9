// Package pagination implements keyset pagination over (updated_at, id).
//
// Rows are always ordered by updated_at DESC, id DESC. A page is fetched with
// limit+1 rows; the extra row only signals that another page exists and is
// never returned. The next cursor is the key of the last returned row.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 20
)

var (
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidLimit  = fmt.Errorf("limit must be between %d and %d", MinLimit, MaxLimit)
)

type Cursor struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is the response envelope shared by every paginated endpoint.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

// Encode serialises c into an opaque URL-safe token.
func Encode(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a token produced by Encode. An empty token is a nil cursor.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if _, err := uuid.Parse(c.ID); err != nil || c.UpdatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// ParseLimit validates a raw limit query value. Empty means def.
func ParseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < MinLimit || n > MaxLimit {
		return 0, ErrInvalidLimit
	}
	return n, nil
}

// Predicate returns the keyset condition for rows strictly after c in
// (updated_at DESC, id DESC) order, using placeholders $next and $next+1.
func Predicate(alias string, next int, c Cursor) (string, []any) {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}
	sql := fmt.Sprintf("(%s < $%d OR (%s = $%d AND %s < $%d))",
		col("updated_at"), next, col("updated_at"), next, col("id"), next+1)
	return sql, []any{c.UpdatedAt, c.ID}
}

// OrderBy is the ORDER BY clause matching Predicate.
func OrderBy(alias string) string {
	if alias == "" {
		return "updated_at DESC, id DESC"
	}
	return alias + ".updated_at DESC, " + alias + ".id DESC"
}

// Trim drops the look-ahead row and builds the page.
func Trim[T any](items []T, limit int, keyOf func(T) Cursor) Page[T] {
	if items == nil {
		items = []T{}
	}
	if len(items) <= limit {
		return Page[T]{Items: items}
	}
	items = items[:limit]
	next := Encode(keyOf(items[len(items)-1]))
	return Page[T]{Items: items, NextCursor: &next}
}
