package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/witanlabs/jsheet/client"
	"github.com/witanlabs/jsheet/internal/session"
	"github.com/witanlabs/jsheet/internal/value"
)

func newTestServer(t *testing.T, content string, opts Options) (*Server, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	sess, err := session.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(sess, opts)
	if err != nil {
		t.Fatal(err)
	}
	return srv, p
}

func dial(t *testing.T, hs *httptest.Server) *client.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := client.Dial(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func call(t *testing.T, srv *Server, op string, args any) client.Message {
	t.Helper()
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			t.Fatal(err)
		}
		raw = b
	}
	resp, _ := srv.Do(client.Request{ID: "1", Op: op, Args: raw})
	return resp
}

func TestDoErrors(t *testing.T) {
	srv, _ := newTestServer(t, `[{"hp": 1}]`, Options{})

	tests := []struct {
		op   string
		args any
		kind string
	}{
		{"nope", nil, kindRequest},
		{"set_cell", map[string]any{"row": 0, "colum": "hp"}, kindRequest},
		{"set_formula", map[string]any{"row": 0, "column": "x", "formula": "1 +"}, "formula"},
		{"sort", map[string]any{"column": "hp", "order": "sideways"}, kindRequest},
		{"set_type", map[string]any{"column": "hp", "type": "date"}, kindRequest},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			resp := call(t, srv, tt.op, tt.args)
			if resp.OK || resp.Error == nil {
				t.Fatalf("expected failure, got %#v", resp)
			}
			if resp.Error.Kind != tt.kind {
				t.Fatalf("kind = %q, want %q (%s)", resp.Error.Kind, tt.kind, resp.Error.Message)
			}
		})
	}
}

func TestDoCoercionError(t *testing.T) {
	srv, _ := newTestServer(t, `[{"hp": 1}]`, Options{})
	if resp := call(t, srv, "set_type", map[string]any{"column": "hp", "type": "number"}); !resp.OK {
		t.Fatalf("set_type: %#v", resp.Error)
	}
	resp := call(t, srv, "set_cell", map[string]any{"row": 0, "column": "hp", "input": "abc"})
	if resp.OK || resp.Error.Kind != "coercion" {
		t.Fatalf("resp = %#v", resp)
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	srv, _ := newTestServer(t, `[{"name": "a", "hp": 1}, {"name": "b", "hp": 2}]`, Options{})
	call(t, srv, "set_formula", map[string]any{"row": 1, "column": "double", "formula": "=hp * 2"})
	call(t, srv, "set_summary", map[string]any{"column": "hp", "summary": "sum"})
	call(t, srv, "sort", map[string]any{"column": "hp", "order": "desc"})
	call(t, srv, "search", map[string]any{"query": "b"})

	resp := call(t, srv, "snapshot", nil)
	var snap client.Snapshot
	if err := json.Unmarshal(resp.Result, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Sort == nil || snap.Sort.Column != "hp" || snap.Sort.Order != "desc" {
		t.Fatalf("sort = %#v", snap.Sort)
	}
	if !value.Equal(snap.Rows[0]["double"], value.Int(4)) {
		t.Fatalf("row 0 double = %#v", snap.Rows[0]["double"])
	}
	if snap.Formulas[0]["double"] != "hp * 2" {
		t.Fatalf("formulas = %#v", snap.Formulas)
	}
	if snap.Summaries["hp"] != "3" {
		t.Fatalf("summaries = %#v", snap.Summaries)
	}
	if len(snap.Matches) != 1 || snap.Matches[0].Row != 0 || snap.Matches[0].Column != "name" {
		t.Fatalf("matches = %#v", snap.Matches)
	}
	if !snap.CanUndo {
		t.Fatal("can_undo should be set")
	}
}

func TestApplyEditsOp(t *testing.T) {
	srv, _ := newTestServer(t, `[{"hp": 1}]`, Options{})
	f := "hp + 1"
	resp := call(t, srv, "apply_edits", map[string]any{"edits": []client.EditArgs{
		{Row: 0, Column: "hp", Value: json.RawMessage(`5`)},
		{Row: 0, Column: "next", Formula: &f},
		{Row: 3, Column: "hp", Value: json.RawMessage(`1`)},
	}})
	if !resp.OK {
		t.Fatalf("apply_edits: %#v", resp.Error)
	}
	var out client.EditsResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatal(err)
	}
	if out.Changed != 2 || len(out.Skipped) != 1 || out.Skipped[0].Index != 2 {
		t.Fatalf("result = %#v", out)
	}
}

func TestWebsocketRoundTripAndEvents(t *testing.T) {
	srv, p := newTestServer(t, `[{"name": "a", "hp": 1}]`, Options{})
	hs := httptest.NewServer(srv)
	defer hs.Close()

	editor := dial(t, hs)
	watcher := dial(t, hs)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var res client.ChangedResult
	if err := editor.Call(ctx, "set_cell", client.CellArgs{Row: 0, Column: "hp", Value: json.RawMessage(`7`)}, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Fatal("set_cell should report a change")
	}

	select {
	case ev := <-watcher.Events():
		if ev.Event != client.EventChanged {
			t.Fatalf("event = %q", ev.Event)
		}
	case <-ctx.Done():
		t.Fatal("other client was not notified")
	}

	err := editor.Call(ctx, "delete_column", map[string]any{"name": "hp"}, nil)
	var ce *client.CallError
	if !errors.As(err, &ce) || ce.Kind != kindRequest {
		t.Fatalf("expected request error, got %v", err)
	}

	if err := editor.Call(ctx, "save", nil, nil); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(p)
	if !strings.Contains(string(raw), `"hp": 7`) {
		t.Fatalf("saved file = %s", raw)
	}
}

func TestAutosaveScheduleValidated(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(p, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	sess, err := session.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(sess, Options{Autosave: "every now and then"}); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if _, err := New(sess, Options{Autosave: "@every 1m"}); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
}

func TestWatchReloadsExternalEdits(t *testing.T) {
	srv, p := newTestServer(t, `[{"id": "a", "hp": 1}]`, Options{Watch: true})
	hs := httptest.NewServer(srv)
	defer hs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go srv.Run(ctx)

	conn := dial(t, hs)
	// give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte(`[{"id": "a", "hp": 99}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	for {
		select {
		case ev := <-conn.Events():
			if ev.Event != client.EventReloaded {
				continue
			}
			var snap client.Snapshot
			if err := conn.Call(ctx, "snapshot", nil, &snap); err != nil {
				t.Fatal(err)
			}
			if !value.Equal(snap.Rows[0]["hp"], value.Int(99)) {
				t.Fatalf("hp after reload = %#v", snap.Rows[0]["hp"])
			}
			return
		case <-ctx.Done():
			t.Fatal("no reload event")
		}
	}
}
