package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"driveline/internal/api"
	"driveline/internal/config"
	"driveline/internal/daemon"
	"driveline/internal/logging"
	"driveline/internal/notifications"
	"driveline/internal/orchestrator"
	"driveline/internal/queue"
	"driveline/internal/selector"
	"driveline/internal/services/extractor"
	"driveline/internal/testsupport"
)

type stubExtractor struct{}

func (stubExtractor) Invoke(ctx context.Context, processor string, params selector.Params) (extractor.Result, error) {
	return extractor.Result{Success: true, CreatedID: "vehicle-test"}, nil
}

func (stubExtractor) InvokeBatch(ctx context.Context, processor string, sourceURLs []string, batchSize int) (map[string]extractor.Result, error) {
	results := make(map[string]extractor.Result, len(sourceURLs))
	for _, url := range sourceURLs {
		results[url] = extractor.Result{Success: true, CreatedID: "vehicle-test"}
	}
	return results, nil
}

type stubScrapers struct{}

func (stubScrapers) Trigger(ctx context.Context, name, endpoint string) error { return nil }

func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	runner := orchestrator.NewRunner(cfg, store, stubExtractor{}, stubScrapers{}, notifications.NewService(cfg), logging.NewNop())
	d, err := daemon.New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func newAPIClient(t *testing.T, d *daemon.Daemon, token string) *api.Client {
	t.Helper()
	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("daemon has no api address")
	}
	return api.NewClient(addr, token)
}

// waitForStartupCycle blocks until the immediate startup cycle has recorded
// its summary, so tests can mutate the queue without racing its drain.
func waitForStartupCycle(t *testing.T, client *api.Client) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := client.Status(context.Background())
		if err == nil && status.LastCycle != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("startup cycle never finished (err=%v)", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	_ = d

	second := testsupport.NewConfig(t)
	second.Paths.LogDir = cfg.Paths.LogDir
	if err := second.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, second)
	runner := orchestrator.NewRunner(second, store, stubExtractor{}, stubScrapers{}, notifications.NewService(second), logging.NewNop())
	dup, err := daemon.New(second, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := dup.Start(context.Background()); err == nil {
		dup.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestAPIQueueLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	client := newAPIClient(t, d, "")
	waitForStartupCycle(t, client)
	ctx := context.Background()

	added, err := client.Enqueue(ctx, api.EnqueueRequest{
		SourceURL: "https://bringatrailer.com/listing/api-test",
		Payload:   json.RawMessage(`{"title":"test"}`),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !added.Inserted || added.Item.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected enqueue response: %#v", added)
	}
	if added.Item.Priority != cfg.Queue.DefaultPriority {
		t.Fatalf("expected default priority, got %d", added.Item.Priority)
	}

	again, err := client.Enqueue(ctx, api.EnqueueRequest{SourceURL: "https://bringatrailer.com/listing/api-test"})
	if err != nil {
		t.Fatalf("duplicate Enqueue: %v", err)
	}
	if again.Inserted || again.Item.ID != added.Item.ID {
		t.Fatalf("expected dedupe, got %#v", again)
	}

	items, err := client.ListQueue(ctx, string(queue.StatusPending))
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(items) != 1 || items[0].ID != added.Item.ID {
		t.Fatalf("unexpected list: %#v", items)
	}

	skipped, err := client.SkipItem(ctx, added.Item.ID)
	if err != nil {
		t.Fatalf("SkipItem: %v", err)
	}
	if skipped.Status != string(queue.StatusSkipped) {
		t.Fatalf("expected skipped, got %s", skipped.Status)
	}

	// Retrying a skipped item is an invalid transition.
	if _, err := client.RetryItem(ctx, added.Item.ID); err == nil {
		t.Fatal("expected retry of skipped item to fail")
	}

	if _, err := client.GetItem(ctx, 99999); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestAPICycleEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	client := newAPIClient(t, d, "")
	waitForStartupCycle(t, client)
	ctx := context.Background()

	if _, err := client.Enqueue(ctx, api.EnqueueRequest{SourceURL: "https://bringatrailer.com/listing/cycle"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	summary, err := client.RunCycle(ctx, orchestrator.Request{SkipScrapers: true})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !summary.Success {
		t.Fatalf("expected successful cycle: %#v", summary)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.WorkerID == "" {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.LastCycle == nil {
		t.Fatal("expected last cycle summary recorded")
	}
}

func TestAPIBearerAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "sekrit"
	d := startDaemon(t, cfg)

	unauth := newAPIClient(t, d, "")
	if _, err := unauth.Status(context.Background()); err == nil {
		t.Fatal("expected unauthorized error without token")
	}

	resp, err := http.Get("http://" + d.APIAddr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	authed := newAPIClient(t, d, "sekrit")
	if _, err := authed.Status(context.Background()); err != nil {
		t.Fatalf("authorized status failed: %v", err)
	}
}

func TestRunCycleSingleFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	// Drain the startup cycle first.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := d.RunCycle(context.Background(), orchestrator.Request{SkipScrapers: true, SkipQueues: true}); err == nil {
			break
		} else if !errors.Is(err, daemon.ErrCycleRunning) || time.Now().After(deadline) {
			t.Fatalf("RunCycle: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
