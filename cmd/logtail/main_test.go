package main

import (
	"bytes"
	"context"
	"testing"
)

func TestPrintEventsFiltersByRun(t *testing.T) {
	var buf bytes.Buffer
	handle := printEvents(&buf, "r1")

	events := []string{
		`{"run_id":"r1","seq":1,"message":"Starting File Indexing","timestamp":"2024-01-02T03:04:05Z"}`,
		`{"run_id":"r2","seq":1,"message":"other run","timestamp":"2024-01-02T03:04:05Z"}`,
	}
	for _, e := range events {
		if err := handle(context.Background(), []byte("k"), []byte(e)); err != nil {
			t.Fatal(err)
		}
	}
	want := "2024-01-02T03:04:05Z [r1 #1] Starting File Indexing\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrintEventsRejectsGarbage(t *testing.T) {
	handle := printEvents(&bytes.Buffer{}, "")
	if err := handle(context.Background(), nil, []byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}
