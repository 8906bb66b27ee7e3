package main

import (
	"strings"
	"testing"
	"time"

	"driveline/internal/api"
)

func TestRenderQueueTable(t *testing.T) {
	items := []api.QueueItemView{
		{
			ID:        7,
			SourceURL: "https://bringatrailer.com/listing/1970-chevrolet-blazer",
			Status:    "pending",
			Attempts:  1,
			Priority:  100,
			UpdatedAt: time.Now(),
		},
		{
			ID:        8,
			SourceURL: "https://mecum.com/lots/42",
			Status:    "complete",
			Priority:  50,
			EntityID:  "vehicle-42",
			UpdatedAt: time.Now(),
		},
	}

	rendered := renderQueueTable(items)
	for _, want := range []string{"pending", "complete", "vehicle-42", "bringatrailer.com"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, rendered)
		}
	}
}

func TestRenderQueueTableEmpty(t *testing.T) {
	if got := renderQueueTable(nil); got != "queue is empty" {
		t.Fatalf("unexpected empty render: %q", got)
	}
}

func TestParseItemID(t *testing.T) {
	if _, err := parseItemID("abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := parseItemID("-3"); err == nil {
		t.Fatal("expected error for negative id")
	}
	id, err := parseItemID(" 42 ")
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
}

func TestFormatKindCountsIsStable(t *testing.T) {
	counts := map[string]int{"two-step": 2, "batch": 3, "generic": 1}
	if got := formatKindCounts(counts); got != "batch=3 generic=1 two-step=2" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := formatKindCounts(nil); got != "none" {
		t.Fatalf("unexpected empty format: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 60); got != "short" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	long := strings.Repeat("x", 80)
	got := truncate(long, 60)
	if len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncate: %q", got)
	}
}
