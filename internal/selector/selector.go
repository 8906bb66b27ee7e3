package selector

import (
	"net/url"
	"strings"

	"driveline/internal/config"
	"driveline/internal/queue"
)

// Kind identifies a processor family. The set is closed; dispatch sites
// switch over it exhaustively so adding a kind is a compiler-checked change.
type Kind int

const (
	// KindGeneric is the fallback single-call extractor for unrecognized
	// sources.
	KindGeneric Kind = iota
	// KindBatch groups items from high-volume uniform sources into one
	// downstream call.
	KindBatch
	// KindTwoStep runs core extraction followed by best-effort enrichment.
	KindTwoStep
	// KindImporter is a dedicated single-call importer for a specific host.
	KindImporter
)

// Kinds lists every processor kind, in dispatch-priority order.
var Kinds = []Kind{KindBatch, KindTwoStep, KindImporter, KindGeneric}

func (k Kind) String() string {
	switch k {
	case KindBatch:
		return "batch"
	case KindTwoStep:
		return "two-step"
	case KindImporter:
		return "importer"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Processor names for the fixed kinds. Importer processors are named by
// configuration instead.
const (
	ProcessorBatch   = "batch-extract"
	ProcessorCore    = "core-extract"
	ProcessorEnrich  = "media-enrich"
	ProcessorGeneric = "generic-extract"
)

// Params is the parameter bundle handed to the downstream processor. It is
// serialized as the JSON request body, so keys use wire naming.
type Params map[string]any

// Selection is the routing decision for one item. It is derived fresh each
// cycle and never persisted, so rule changes take effect on the next cycle
// without touching stored rows.
type Selection struct {
	Kind      Kind
	Processor string
	Params    Params
	Reason    string
}

// Rules is the routing table, built once per cycle from configuration.
type Rules struct {
	batchHosts   map[string]struct{}
	twoStepHosts map[string]struct{}
	importers    map[string]string
	batchSize    int
}

// NewRules builds a routing table from the configured routes. batchSize is
// carried into batch selections as the downstream chunk size.
func NewRules(routes config.Routes, batchSize int) Rules {
	rules := Rules{
		batchHosts:   make(map[string]struct{}, len(routes.BatchHosts)),
		twoStepHosts: make(map[string]struct{}, len(routes.TwoStepHosts)),
		importers:    make(map[string]string, len(routes.ImporterHosts)),
		batchSize:    batchSize,
	}
	for _, host := range routes.BatchHosts {
		rules.batchHosts[host] = struct{}{}
	}
	for _, host := range routes.TwoStepHosts {
		rules.twoStepHosts[host] = struct{}{}
	}
	for host, processor := range routes.ImporterHosts {
		rules.importers[host] = processor
	}
	return rules
}

// Select routes one item. It is pure and total: it never errors and always
// returns exactly one selection, first matching rule wins.
func (r Rules) Select(item *queue.Item) Selection {
	host := hostOf(item.SourceURL)
	if host == "" {
		return Selection{
			Kind:      KindGeneric,
			Processor: ProcessorGeneric,
			Params:    Params{"url": item.SourceURL},
			Reason:    "unparseable source url",
		}
	}

	if matched, ok := matchHost(host, r.batchHosts); ok {
		return Selection{
			Kind:      KindBatch,
			Processor: ProcessorBatch,
			Params:    Params{"url": item.SourceURL, "batch_size": r.batchSize},
			Reason:    "batch host " + matched,
		}
	}
	if matched, ok := matchHost(host, r.twoStepHosts); ok {
		return Selection{
			Kind:      KindTwoStep,
			Processor: ProcessorCore,
			Params:    Params{"url": item.SourceURL},
			Reason:    "two-step host " + matched,
		}
	}
	if processor, matched, ok := matchImporter(host, r.importers); ok {
		return Selection{
			Kind:      KindImporter,
			Processor: processor,
			Params:    Params{"url": item.SourceURL},
			Reason:    "dedicated importer for " + matched,
		}
	}
	return Selection{
		Kind:      KindGeneric,
		Processor: ProcessorGeneric,
		Params:    Params{"url": item.SourceURL},
		Reason:    "no matching route for " + host,
	}
}

// hostOf extracts the normalized host from a source URL, or "" when the URL
// cannot be parsed.
func hostOf(sourceURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// matchHost reports whether host equals a rule host or is one of its
// subdomains, returning the rule host that matched.
func matchHost(host string, rules map[string]struct{}) (string, bool) {
	if _, ok := rules[host]; ok {
		return host, true
	}
	for rule := range rules {
		if strings.HasSuffix(host, "."+rule) {
			return rule, true
		}
	}
	return "", false
}

func matchImporter(host string, importers map[string]string) (string, string, bool) {
	if processor, ok := importers[host]; ok {
		return processor, host, true
	}
	for rule, processor := range importers {
		if strings.HasSuffix(host, "."+rule) {
			return processor, rule, true
		}
	}
	return "", "", false
}
