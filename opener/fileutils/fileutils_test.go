package fileutils

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONFileAtomic_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "analysis.json")

	in := map[string]any{"image_id": "img-1", "elements": []any{"beach"}}
	if err := WriteJSONFileAtomic(p, in, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(p) {
		t.Fatalf("expected %s to exist", p)
	}

	var out map[string]any
	if err := ReadJSONFile(p, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out["image_id"] != "img-1" {
		t.Fatalf("image_id=%v", out["image_id"])
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, got %d entries", len(entries))
	}
}

func TestReadJSONFile_Missing(t *testing.T) {
	t.Parallel()

	var v map[string]any
	err := ReadJSONFile(filepath.Join(t.TempDir(), "nope.json"), &v)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err=%v, want fs.ErrNotExist", err)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  hello  ", 10); got != "hello" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo…" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("got=%q", got)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Setting string `json:"setting"`
	}

	var p payload
	if err := DecodeModelJSON(`{"setting":"beach"}`, &p); err != nil || p.Setting != "beach" {
		t.Fatalf("fast path: p=%+v err=%v", p, err)
	}

	p = payload{}
	if err := DecodeModelJSON("Sure! Here it is:\n```json\n{\"setting\":\"cafe\"}\n```", &p); err != nil || p.Setting != "cafe" {
		t.Fatalf("extracted: p=%+v err=%v", p, err)
	}

	p = payload{}
	reply := "The photo shows {a beach}. Result: {\"setting\":\"pier\"} and {\"setting\":\"ignored\"}"
	if err := DecodeModelJSON(reply, &p); err != nil || p.Setting != "pier" {
		t.Fatalf("first complete object: p=%+v err=%v", p, err)
	}

	p = payload{}
	if err := DecodeModelJSON("```\n{\"setting\":\"rooftop\"}\n```\nHope that helps!", &p); err != nil || p.Setting != "rooftop" {
		t.Fatalf("bare fence: p=%+v err=%v", p, err)
	}

	if err := DecodeModelJSON("```json\n```", &p); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("empty fence: err=%v", err)
	}
	if err := DecodeModelJSON("   ", &p); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("empty: err=%v", err)
	}
	if err := DecodeModelJSON("no json here", &p); err == nil {
		t.Fatalf("expected error for missing object")
	}
}
