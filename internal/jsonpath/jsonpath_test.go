package jsonpath

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return v
}

func TestLookupNested(t *testing.T) {
	t.Parallel()

	data := decode(t, `{"user":{"login":"alice","id":42},"hits":[{"objectID":"a1"},{"objectID":"a2"}]}`)

	v, ok := Lookup(data, "user.login")
	if !ok || v != "alice" {
		t.Fatalf("user.login = %v, %v", v, ok)
	}

	v, ok = Lookup(data, "hits.1.objectID")
	if !ok || v != "a2" {
		t.Fatalf("hits.1.objectID = %v, %v", v, ok)
	}
}

func TestLookupEmptyPathReturnsRoot(t *testing.T) {
	t.Parallel()

	data := decode(t, `[{"id":1}]`)
	v, ok := Lookup(data, "")
	if !ok {
		t.Fatal("expected root for empty path")
	}
	if _, isList := v.([]any); !isList {
		t.Fatalf("expected list root, got %T", v)
	}
}

func TestLookupMissing(t *testing.T) {
	t.Parallel()

	data := decode(t, `{"a":{"b":1}}`)

	cases := []string{"a.c", "a.b.c", "x", "a.5"}
	for _, path := range cases {
		if _, ok := Lookup(data, path); ok {
			t.Fatalf("path %q should be missing", path)
		}
	}
}

func TestLookupStringFormatsNumbers(t *testing.T) {
	t.Parallel()

	data := decode(t, `{"id":3094012345,"score":1.5,"flag":true}`)

	s, ok := LookupString(data, "id")
	if !ok || s != "3094012345" {
		t.Fatalf("id = %q, %v", s, ok)
	}

	s, ok = LookupString(data, "score")
	if !ok || s != "1.5" {
		t.Fatalf("score = %q, %v", s, ok)
	}

	s, ok = LookupString(data, "flag")
	if !ok || s != "true" {
		t.Fatalf("flag = %q, %v", s, ok)
	}
}

func TestLookupStringRejectsComposite(t *testing.T) {
	t.Parallel()

	data := decode(t, `{"obj":{"a":1}}`)
	if _, ok := LookupString(data, "obj"); ok {
		t.Fatal("composite values should not render as strings")
	}
}
