package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestCompileSongQuery(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"filterc", "--entity", "song", "id=5&has_lyrics=false&limit=10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Entity string          `json:"entity"`
		Where  json.RawMessage `json:"where"`
		SQL    string          `json:"sql"`
		Args   []any           `json:"args"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, out.String())
	}
	if got.Entity != "song" {
		t.Fatalf("unexpected entity %q", got.Entity)
	}
	if string(got.Where) != `{"refLyrics":{"isNull":true},"id":5}` {
		t.Fatalf("unexpected where %s", got.Where)
	}
	if got.SQL != "(t0.ref_lyrics IS NULL AND t0.id = $1)" {
		t.Fatalf("unexpected sql %q", got.SQL)
	}
	if len(got.Args) != 1 || got.Args[0] != float64(5) {
		t.Fatalf("unexpected args %v", got.Args)
	}
}

func TestStrictRejectsUnknownKeys(t *testing.T) {
	var out bytes.Buffer
	if err := newApp(&out).Run([]string{"filterc", "--strict", "bogus=1"}); err == nil {
		t.Fatalf("expected strict error")
	}
	out.Reset()
	if err := newApp(&out).Run([]string{"filterc", "bogus=1"}); err != nil {
		t.Fatalf("lenient mode should skip unknown keys: %v", err)
	}
	if !strings.Contains(out.String(), `"sql": "TRUE"`) {
		t.Fatalf("expected empty predicate, got %s", out.String())
	}
}

func TestListKeys(t *testing.T) {
	var out bytes.Buffer
	if err := newApp(&out).Run([]string{"filterc", "-e", "recording", "--keys"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "has_event\n") {
		t.Fatalf("expected recording keys, got %s", out.String())
	}
}

func TestUnknownEntity(t *testing.T) {
	if err := newApp(&bytes.Buffer{}).Run([]string{"filterc", "-e", "choir", "id=1"}); err == nil {
		t.Fatalf("expected unknown entity error")
	}
}
