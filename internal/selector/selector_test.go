package selector_test

import (
	"testing"

	"driveline/internal/config"
	"driveline/internal/queue"
	"driveline/internal/selector"
)

func defaultRules() selector.Rules {
	cfg := config.Default()
	cfg.Routes.ImporterHosts = map[string]string{
		"carsandbids.com": "carsandbids-import",
	}
	return selector.NewRules(cfg.Routes, cfg.Extractors.BatchSize)
}

func itemFor(url string) *queue.Item {
	return &queue.Item{ID: 1, SourceURL: url}
}

func TestSelectRoutesByHost(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name      string
		url       string
		kind      selector.Kind
		processor string
	}{
		{"batch host", "https://mecum.com/lots/12", selector.KindBatch, selector.ProcessorBatch},
		{"batch host with www", "https://www.barrett-jackson.com/lot/99", selector.KindBatch, selector.ProcessorBatch},
		{"batch subdomain", "https://auctions.mecum.com/lots/7", selector.KindBatch, selector.ProcessorBatch},
		{"two-step host", "https://bringatrailer.com/listing/blazer", selector.KindTwoStep, selector.ProcessorCore},
		{"importer host", "https://carsandbids.com/auctions/abc", selector.KindImporter, "carsandbids-import"},
		{"unknown host", "https://example.org/car", selector.KindGeneric, selector.ProcessorGeneric},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sel := rules.Select(itemFor(tc.url))
			if sel.Kind != tc.kind {
				t.Fatalf("kind: got %s, want %s", sel.Kind, tc.kind)
			}
			if sel.Processor != tc.processor {
				t.Fatalf("processor: got %q, want %q", sel.Processor, tc.processor)
			}
			if sel.Reason == "" {
				t.Fatal("selection must carry a reason")
			}
		})
	}
}

func TestSelectIsTotalOnMalformedURLs(t *testing.T) {
	rules := defaultRules()

	for _, raw := range []string{
		"",
		"   ",
		"not a url at all",
		"://missing-scheme",
		"https://",
		"mailto:someone@example.com",
	} {
		sel := rules.Select(itemFor(raw))
		if sel.Kind != selector.KindGeneric {
			t.Fatalf("%q: got %s, want generic fallback", raw, sel.Kind)
		}
		if sel.Processor != selector.ProcessorGeneric {
			t.Fatalf("%q: got processor %q", raw, sel.Processor)
		}
	}
}

func TestSelectBatchBeatsLaterRules(t *testing.T) {
	cfg := config.Default()
	cfg.Routes.BatchHosts = []string{"mecum.com"}
	cfg.Routes.TwoStepHosts = []string{"mecum.com"}
	cfg.Routes.ImporterHosts = map[string]string{"mecum.com": "mecum-import"}
	rules := selector.NewRules(cfg.Routes, 50)

	sel := rules.Select(itemFor("https://mecum.com/lots/1"))
	if sel.Kind != selector.KindBatch {
		t.Fatalf("expected batch rule to win, got %s", sel.Kind)
	}
}

func TestSelectCarriesParams(t *testing.T) {
	rules := defaultRules()

	batch := rules.Select(itemFor("https://mecum.com/lots/1"))
	if batch.Params["batch_size"] != 50 {
		t.Fatalf("expected batch_size=50 in params, got %v", batch.Params["batch_size"])
	}

	imp := rules.Select(itemFor("https://carsandbids.com/auctions/x"))
	if imp.Params["url"] != "https://carsandbids.com/auctions/x" {
		t.Fatalf("expected url param, got %v", imp.Params["url"])
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	rules := defaultRules()
	item := itemFor("https://bringatrailer.com/listing/1")

	first := rules.Select(item)
	for i := 0; i < 10; i++ {
		if got := rules.Select(item); got.Kind != first.Kind || got.Processor != first.Processor {
			t.Fatalf("selection changed between calls: %v vs %v", got, first)
		}
	}
}
