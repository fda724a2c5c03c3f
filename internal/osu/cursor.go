package osu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// PageCursor is the canonical pagination marker for ranking endpoints. The
// API encodes it in three shapes: null, a bare page number, or an object
// carrying a "page" key. All three decode into this one value; code consuming
// a PageCursor can no longer tell which wire shape produced it.
//
// The zero value means no further pages exist.
type PageCursor struct {
	page uint32
	set  bool
}

// PageNumber returns a cursor pointing at page n.
func PageNumber(n uint32) PageCursor {
	return PageCursor{page: n, set: true}
}

// Page returns the page number and whether one is present.
func (c PageCursor) Page() (uint32, bool) {
	return c.page, c.set
}

// UnmarshalJSON decodes any of the three wire shapes. An object without a
// "page" key fails with a MissingFieldError; other malformed values surface
// the underlying decode error unchanged.
func (c *PageCursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = PageCursor{}
		return nil
	}

	if data[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		raw, ok := fields["page"]
		if !ok {
			return &MissingFieldError{Field: "page"}
		}
		data = raw
	}

	var n uint32
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = PageCursor{page: n, set: true}
	return nil
}

// MarshalJSON always emits the canonical shape: a bare page number, or null
// when no page is present.
func (c PageCursor) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return strconv.AppendUint(nil, uint64(c.page), 10), nil
}

// Cursor is an opaque pagination token returned by list/search endpoints.
// Its contents are never interpreted: the raw JSON value is stored verbatim
// and replayed on the follow-up request. It is deliberately a different type
// from PageCursor; a resource commits to exactly one of the two conventions.
type Cursor struct {
	raw json.RawMessage
}

// Present reports whether the upstream returned a token, i.e. whether more
// data exists.
func (c Cursor) Present() bool {
	return len(c.raw) > 0 && !bytes.Equal(c.raw, []byte("null"))
}

func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Cursor{}
		return nil
	}
	c.raw = append(c.raw[:0], data...)
	return nil
}

func (c Cursor) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// appendQuery forwards the token into the outgoing query string the way the
// upstream expects it back: each top-level key k becomes cursor[k]. The keys
// and values are copied mechanically, never examined.
func (c Cursor) appendQuery(q url.Values) error {
	if !c.Present() {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(c.raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}

	for key, val := range fields {
		switch v := val.(type) {
		case string:
			q.Set("cursor["+key+"]", v)
		case json.Number:
			q.Set("cursor["+key+"]", v.String())
		default:
			q.Set("cursor["+key+"]", fmt.Sprint(v))
		}
	}
	return nil
}
