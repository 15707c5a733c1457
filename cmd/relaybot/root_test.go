package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"gateway", "chat", "reset", "status", "onboard", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestResetRequiresUID(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"reset"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected missing --uid error")
	}
	if !strings.Contains(out.String(), "uid") {
		t.Errorf("error output = %q", out.String())
	}
}

func TestResetCallsBackend(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/reset" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("RELAYBOT_BACKEND_URL", srv.URL)

	root := rootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "config.json"), "reset", "--uid", "u1"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("reset endpoint hit %d times, want 1", hits.Load())
	}
}
