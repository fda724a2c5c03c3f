package osu

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
)

func TestPageCursorDecode(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantPage     uint32
		wantSet      bool
		wantMissing  string
		wantAnyError bool
	}{
		{name: "null means exhausted", input: `null`, wantSet: false},
		{name: "bare number", input: `7`, wantPage: 7, wantSet: true},
		{name: "object with page", input: `{"page":3}`, wantPage: 3, wantSet: true},
		{name: "object ignores extra keys", input: `{"page":3,"extra":"x"}`, wantPage: 3, wantSet: true},
		{name: "empty object", input: `{}`, wantMissing: "page"},
		{name: "object without page", input: `{"extra":1}`, wantMissing: "page"},
		{name: "wrong type", input: `true`, wantAnyError: true},
		{name: "negative number", input: `-1`, wantAnyError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c PageCursor
			err := json.Unmarshal([]byte(tt.input), &c)

			if tt.wantMissing != "" {
				var missing *MissingFieldError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFieldError, got %v", err)
				}
				if missing.Field != tt.wantMissing {
					t.Fatalf("expected missing field %q, got %q", tt.wantMissing, missing.Field)
				}
				return
			}
			if tt.wantAnyError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			page, ok := c.Page()
			if ok != tt.wantSet {
				t.Fatalf("Page() present = %v, want %v", ok, tt.wantSet)
			}
			if ok && page != tt.wantPage {
				t.Fatalf("Page() = %d, want %d", page, tt.wantPage)
			}
		})
	}
}

func TestPageCursorEncodeCanonical(t *testing.T) {
	// All three wire shapes collapse to one canonical output
	for _, input := range []string{`4`, `{"page":4}`, `{"page":4,"extra":true}`} {
		var c PageCursor
		if err := json.Unmarshal([]byte(input), &c); err != nil {
			t.Fatalf("decoding %s: %v", input, err)
		}
		out, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("encoding: %v", err)
		}
		if string(out) != `4` {
			t.Fatalf("encoded %s as %s, want 4", input, out)
		}
	}

	out, err := json.Marshal(PageCursor{})
	if err != nil {
		t.Fatalf("encoding zero cursor: %v", err)
	}
	if string(out) != `null` {
		t.Fatalf("encoded zero cursor as %s, want null", out)
	}
}

func TestPageNumberConstructor(t *testing.T) {
	c := PageNumber(12)
	page, ok := c.Page()
	if !ok || page != 12 {
		t.Fatalf("PageNumber(12).Page() = %d, %v", page, ok)
	}
}

func TestOpaqueCursorPassthrough(t *testing.T) {
	token := `{"published_at":"2024-01-02T03:04:05Z","_id":"abc123"}`

	var c Cursor
	if err := json.Unmarshal([]byte(token), &c); err != nil {
		t.Fatalf("decoding token: %v", err)
	}
	if !c.Present() {
		t.Fatal("Present() = false for non-null token")
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("encoding token: %v", err)
	}
	if string(out) != token {
		t.Fatalf("token not preserved verbatim: got %s", out)
	}
}

func TestOpaqueCursorNull(t *testing.T) {
	var c Cursor
	if err := json.Unmarshal([]byte(`null`), &c); err != nil {
		t.Fatalf("decoding null: %v", err)
	}
	if c.Present() {
		t.Fatal("Present() = true for null token")
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	if string(out) != `null` {
		t.Fatalf("encoded empty token as %s, want null", out)
	}
}

func TestOpaqueCursorQueryEncoding(t *testing.T) {
	var c Cursor
	if err := json.Unmarshal([]byte(`{"_id":"abc","page":9000000000}`), &c); err != nil {
		t.Fatalf("decoding token: %v", err)
	}

	q := url.Values{}
	if err := c.appendQuery(q); err != nil {
		t.Fatalf("appendQuery: %v", err)
	}

	if got := q.Get("cursor[_id]"); got != "abc" {
		t.Fatalf("cursor[_id] = %q, want abc", got)
	}
	// Large integers must not pick up float formatting
	if got := q.Get("cursor[page]"); got != "9000000000" {
		t.Fatalf("cursor[page] = %q, want 9000000000", got)
	}
}

func TestOpaqueCursorQueryEncodingEmpty(t *testing.T) {
	var c Cursor
	q := url.Values{}
	if err := c.appendQuery(q); err != nil {
		t.Fatalf("appendQuery: %v", err)
	}
	if len(q) != 0 {
		t.Fatalf("empty cursor added query params: %v", q)
	}
}
