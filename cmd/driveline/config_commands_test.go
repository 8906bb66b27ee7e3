package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected output to mention %s, got %q", target, output)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, want := range []string{"[paths]", "[queue]", "[routes]", "lock_ttl_minutes"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("sample config missing %q", want)
		}
	}

	// A second init must refuse to overwrite.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigPathHonorsEnv(t *testing.T) {
	t.Setenv("DRIVELINE_CONFIG", "/tmp/driveline-test.toml")
	output, err := runCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(output) != "/tmp/driveline-test.toml" {
		t.Fatalf("unexpected path output: %q", output)
	}
}
