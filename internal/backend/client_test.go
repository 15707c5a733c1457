package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestAnswer(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantPre string
	}{
		{name: "ok", status: 200, body: `{"answer":"hello"}`, want: "hello"},
		{name: "created counts as success", status: 201, body: `{"answer":"hi"}`, want: "hi"},
		{name: "server error", status: 500, body: "boom\n", want: "Error 500: boom"},
		{name: "malformed json", status: 200, body: `not json`, want: ApologyText},
		{name: "long error body truncated", status: 502, body: strings.Repeat("x", 600), wantPre: "Error 502: " + strings.Repeat("x", 500) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "1", time.Second)
			got := c.RequestAnswer(context.Background(), "hi", "u1")
			want := tt.want
			if tt.wantPre != "" {
				want = tt.wantPre
			}
			if got != want {
				t.Errorf("RequestAnswer = %q, want %q", got, want)
			}
		})
	}
}

func TestRequestAnswerSendsContract(t *testing.T) {
	var gotPath, gotVersion, gotType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.Header.Get(VersionHeader)
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "2.1", time.Second)
	c.RequestAnswer(context.Background(), "what time is it", "u1@c.us")

	if gotPath != "/prompt" {
		t.Errorf("path = %q, want /prompt", gotPath)
	}
	if gotVersion != "2.1" {
		t.Errorf("%s = %q, want 2.1", VersionHeader, gotVersion)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody["prompt"] != "what time is it" || gotBody["uid"] != "u1@c.us" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestRequestAnswerNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "1", time.Second)
	if got := c.RequestAnswer(context.Background(), "hi", "u1"); got != ApologyText {
		t.Errorf("RequestAnswer = %q, want apology", got)
	}
}

func TestRequestAnswerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "1", 50*time.Millisecond)
	if got := c.RequestAnswer(context.Background(), "hi", "u1"); got != ApologyText {
		t.Errorf("RequestAnswer = %q, want apology", got)
	}
}

func TestResetSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", 200, false},
		{"no content", 204, false},
		{"not found", 404, true},
		{"server error", 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotVersion string
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotVersion = r.Header.Get(VersionHeader)
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewClient(srv.URL, "3", time.Second).ResetSession(context.Background(), "u1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResetSession err = %v, wantErr %v", err, tt.wantErr)
			}
			if gotPath != "/reset" || gotVersion != "3" || gotBody["uid"] != "u1" {
				t.Errorf("request = %s %s %v", gotPath, gotVersion, gotBody)
			}
		})
	}
}

func TestResetSessionNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := NewClient(url, "1", time.Second).ResetSession(context.Background(), "u1"); err == nil {
		t.Error("expected error for unreachable backend")
	}
}
