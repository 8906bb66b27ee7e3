package extractor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"driveline/internal/config"
	"driveline/internal/selector"
	"driveline/internal/services"
	"driveline/internal/services/extractor"
)

func newClient(t *testing.T, baseURL string) *extractor.Client {
	t.Helper()

	cfg := config.Default().Extractors
	cfg.BaseURL = baseURL
	cfg.APIKey = "secret-key"
	client, err := extractor.New(cfg)
	if err != nil {
		t.Fatalf("extractor.New: %v", err)
	}
	return client
}

func TestInvokeReturnsProcessorResult(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var params map[string]any
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Errorf("decode params: %v", err)
		}
		if params["url"] != "https://bringatrailer.com/listing/1" {
			t.Errorf("unexpected url param: %v", params["url"])
		}
		json.NewEncoder(w).Encode(extractor.Result{Success: true, CreatedID: "vehicle-42"})
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	result, err := client.Invoke(context.Background(), selector.ProcessorCore, selector.Params{
		"url": "https://bringatrailer.com/listing/1",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !result.Success || result.EntityID() != "vehicle-42" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotPath != "/"+selector.ProcessorCore {
		t.Fatalf("expected processor path, got %q", gotPath)
	}
}

func TestInvokePassesThroughProcessorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractor.Result{Success: false, Error: "no vin found"})
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	result, err := client.Invoke(context.Background(), selector.ProcessorGeneric, selector.Params{"url": "x"})
	if err != nil {
		t.Fatalf("a 2xx processor error must not be a transport error: %v", err)
	}
	if result.Success || result.Error != "no vin found" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestInvokeClassifiesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Invoke(context.Background(), selector.ProcessorCore, nil)
	if !errors.Is(err, services.ErrDownstream) {
		t.Fatalf("expected ErrDownstream on 5xx, got %v", err)
	}
	if !services.IsUnreachable(err) {
		t.Fatal("5xx must classify as unreachable")
	}
}

func TestInvokeClassifiesClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad params", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Invoke(context.Background(), selector.ProcessorCore, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation on 4xx, got %v", err)
	}
}

func TestInvokeClassifiesTimeouts(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := config.Default().Extractors
	cfg.BaseURL = server.URL
	cfg.CoreTimeoutSeconds = 1
	client, err := extractor.New(cfg)
	if err != nil {
		t.Fatalf("extractor.New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Invoke(ctx, selector.ProcessorCore, nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestInvokeRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Invoke(context.Background(), selector.ProcessorCore, nil)
	if !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestInvokeBatchKeysResultsBySourceURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URLs      []string `json:"urls"`
			BatchSize int      `json:"batch_size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode batch request: %v", err)
		}
		if len(req.URLs) != 2 || req.BatchSize != 50 {
			t.Errorf("unexpected batch request: %+v", req)
		}
		// Second URL intentionally missing from the response.
		json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]extractor.Result{
				req.URLs[0]: {Success: true, CreatedID: "vehicle-1"},
			},
		})
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	urls := []string{"https://mecum.com/lots/1", "https://mecum.com/lots/2"}
	results, err := client.InvokeBatch(context.Background(), selector.ProcessorBatch, urls, 50)
	if err != nil {
		t.Fatalf("InvokeBatch: %v", err)
	}
	if results[urls[0]].EntityID() != "vehicle-1" {
		t.Fatalf("unexpected result for %s: %#v", urls[0], results[urls[0]])
	}
	if _, present := results[urls[1]]; present {
		t.Fatal("missing downstream key must stay missing for the caller to classify")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	cfg := config.Default().Extractors
	if _, err := extractor.New(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
