// Package pagination implements keyset paging over (timestamp, id) ordered
// reads. Pages walk newest-first and the cursor names the last row served.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for cursors this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the sort key of the last row of a page.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// Request is what a caller asks for: a page size and an opaque cursor.
type Request struct {
	Limit  int
	Cursor string
}

// Page is a decoded Request ready to drive a query.
type Page struct {
	Limit int
	After *Cursor
}

// Decode clamps the limit and parses the cursor.
func (r Request) Decode() (Page, error) {
	limit := r.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	after, err := Decode(r.Cursor)
	if err != nil {
		return Page{}, err
	}
	return Page{Limit: limit, After: after}, nil
}

// Fetch is the row count to load: one extra row reveals whether a next page
// exists.
func (p Page) Fetch() int {
	return p.Limit + 1
}

// Keyset returns the predicate selecting rows strictly after c in
// (timeCol DESC, idCol DESC) order.
func (c *Cursor) Keyset(timeCol, idCol string) (string, []any) {
	at := c.At.UTC()
	clause := fmt.Sprintf("(%[1]s < ?) OR (%[1]s = ? AND %[2]s < ?)", timeCol, idCol)
	return clause, []any{at, at, c.ID}
}

// Trim cuts rows loaded with Fetch down to the page and returns the cursor of
// the following page, empty on the last one.
func Trim[T any](rows []T, p Page, key func(T) Cursor) ([]T, string) {
	if len(rows) <= p.Limit {
		return rows, ""
	}
	rows = rows[:p.Limit]
	return rows, Encode(key(rows[len(rows)-1]))
}

// Encode renders a cursor as URL-safe text.
func Encode(c Cursor) string {
	payload := c.At.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode parses a cursor from Encode. Blank input means the first page.
func Decode(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	at, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &Cursor{At: ts.UTC(), ID: parsed}, nil
}
