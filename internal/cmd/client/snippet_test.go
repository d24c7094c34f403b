package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSnippetSubmitCommand(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"snippetId": "abc", "position": 1})
	}))
	defer srv.Close()

	cmd := NewSnippetCommand(func() string { return srv.URL })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"submit", "--scope", "alice", "--body", "package main"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if gotPath != "/v1/snippets/submit" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["scope"] != "alice" || gotBody["body"] != "package main" {
		t.Fatalf("body = %+v", gotBody)
	}
	if !strings.Contains(out.String(), `"snippetId": "abc"`) {
		t.Fatalf("output = %s", out.String())
	}
}

func TestSnippetSubmitRequiresBody(t *testing.T) {
	cmd := NewSnippetCommand(func() string { return "http://127.0.0.1:0" })
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"submit", "--scope", "alice"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --body or --file")
	}
}

func TestBufferDeadLettersFilterEscaped(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		_ = json.NewEncoder(w).Encode(map[string]any{"deadLetters": []any{}})
	}))
	defer srv.Close()

	cmd := NewBufferCommand(func() string { return srv.URL })
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"dead-letters", "--filter", `attempts >= 3`})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotFilter != "attempts >= 3" {
		t.Fatalf("filter = %q", gotFilter)
	}
}
