package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/gotmt"
	"github.com/ZaguanLabs/gotmt/config"
	"github.com/ZaguanLabs/gotmt/logging"
	"github.com/ZaguanLabs/gotmt/store"
)

// testEnv points the process at a fresh SQLite database and the mock provider.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(dir, "tmt.db"))
	t.Setenv("PROVIDER", "mock")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("EVENTS_BACKEND", "memory")
	t.Setenv("NATS_URL", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func seedEntry(t *testing.T, key, en string) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, os.Getenv("DATABASE_URL"), store.Options{})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer s.Close()

	now := time.Now().UTC()
	err = s.Insert(ctx, gotmt.TranslationEntry{
		ID: "seed-" + key, Key: key, Values: map[string]string{"en": en},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func TestVersion(t *testing.T) {
	testEnv(t)
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "gotmt ") {
		t.Errorf("expected version output, got: %s", out)
	}
}

func TestLanguages_ListBootstraps(t *testing.T) {
	testEnv(t)
	out, err := execute(t, "languages", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, code := range []string{"en", "es", "fr"} {
		if !strings.Contains(out, code) {
			t.Errorf("expected %s in output:\n%s", code, out)
		}
	}
}

func TestLanguages_AddThenExport(t *testing.T) {
	dir := testEnv(t)
	seedEntry(t, "GREETING", "Hello")

	out, err := execute(t, "languages", "add", "de", "German")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !strings.Contains(out, "1 translations updated") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := execute(t, "languages", "add", "de", "German"); err == nil {
		t.Error("expected error adding an existing language")
	}

	path := filepath.Join(dir, "export.json")
	if _, err := execute(t, "export", "-o", path); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []gotmt.TranslationEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Values["de"] != "Hallo" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestExport_Stdout(t *testing.T) {
	testEnv(t)
	out, err := execute(t, "export")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected empty array, got %q", out)
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	testEnv(t)
	t.Setenv("PROVIDER", "huggingface")
	t.Setenv("HUGGINGFACE_API_KEY", "")

	_, err := execute(t, "serve", "--addr", "127.0.0.1:0")
	if err == nil || !strings.Contains(err.Error(), "HUGGINGFACE_API_KEY") {
		t.Errorf("expected configuration error, got %v", err)
	}
}

// startServer runs serve on a loopback port and waits until /health answers.
func startServer(t *testing.T) (base string, stop func() error) {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := logging.New(&bytes.Buffer{}, logging.Options{Level: "error"})
	st := &rootState{cfg: cfg, logger: logger}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	base = "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, st, ln) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(base + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server did not come up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	stop = func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
			return nil
		}
	}
	return base, stop
}

func TestServe_GracefulShutdown(t *testing.T) {
	dir := testEnv(t)
	snapshot := filepath.Join(dir, "cache.json")
	t.Setenv("CACHE_SNAPSHOT", snapshot)

	base, stop := startServer(t)

	body := strings.NewReader(`{"key":"farewell","value":"Goodbye"}`)
	resp, err := http.Post(base+"/api/translations", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if err := stop(); err != nil {
		t.Errorf("serve returned %v", err)
	}

	data, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if !strings.Contains(string(data), "Au revoir") {
		t.Errorf("snapshot missing cached translation:\n%s", data)
	}
}

func TestServe_DrainsInFlightRequests(t *testing.T) {
	testEnv(t)
	// One provider call per second: the second language of a new entry waits.
	t.Setenv("PROVIDER_RATE_LIMIT_RPM", "60")
	t.Setenv("FANOUT_PARALLELISM", "1")

	base, stop := startServer(t)

	// An open event stream must not hold up shutdown.
	stream, err := http.Get(base + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Body.Close()

	type result struct {
		status int
		body   map[string]any
		err    error
	}
	slow := make(chan result, 1)
	go func() {
		resp, err := http.Post(base+"/api/translations", "application/json",
			strings.NewReader(`{"key":"greeting","value":"Hello"}`))
		if err != nil {
			slow <- result{err: err}
			return
		}
		defer resp.Body.Close()
		var out map[string]any
		err = json.NewDecoder(resp.Body).Decode(&out)
		slow <- result{status: resp.StatusCode, body: out, err: err}
	}()

	time.Sleep(300 * time.Millisecond)
	if err := stop(); err != nil {
		t.Errorf("serve returned %v", err)
	}

	res := <-slow
	if res.err != nil {
		t.Fatalf("in-flight request failed: %v", res.err)
	}
	if res.status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", res.status, res.body)
	}
	entry, _ := res.body["translation"].(map[string]any)
	values, _ := entry["values"].(map[string]any)
	if values["es"] != "Hola" || values["fr"] != "Bonjour" {
		t.Errorf("in-flight request was cut short: values = %v", values)
	}
}
