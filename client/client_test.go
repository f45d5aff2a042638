package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// echoServer answers "echo" with its args, fails everything else, and
// announces each call as a "changed" event before replying.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()
		for {
			var req Request
			if err := wsjson.Read(ctx, c, &req); err != nil {
				return
			}
			_ = wsjson.Write(ctx, c, Message{Event: EventChanged})
			resp := Message{ID: req.ID}
			if req.Op == "echo" {
				resp.OK = true
				resp.Result = req.Args
			} else {
				resp.Error = &ErrorBody{Kind: "request", Message: "unknown op"}
			}
			if err := wsjson.Write(ctx, c, resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCall_RoundTrip(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var out CellArgs
	if err := conn.Call(ctx, "echo", CellArgs{Row: 2, Column: "hp", Value: json.RawMessage(`5`)}, &out); err != nil {
		t.Fatal(err)
	}
	if out.Row != 2 || out.Column != "hp" || string(out.Value) != "5" {
		t.Fatalf("unexpected echo: %#v", out)
	}

	select {
	case ev := <-conn.Events():
		if ev.Event != EventChanged {
			t.Fatalf("event = %q", ev.Event)
		}
	case <-ctx.Done():
		t.Fatal("no event delivered")
	}
}

func TestCall_ReportsServerError(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	err = conn.Call(ctx, "bogus", nil, nil)
	var ce *CallError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if ce.Op != "bogus" || ce.Kind != "request" || ce.Message != "unknown op" {
		t.Fatalf("unexpected error: %#v", ce)
	}
	if got := ce.Error(); got != "bogus: request error: unknown op" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCall_FailsAfterClose(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()
	if err := conn.Call(ctx, "echo", nil, nil); err == nil {
		t.Fatal("expected error on closed connection")
	}
}
