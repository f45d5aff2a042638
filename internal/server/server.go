// Package server exposes one editing session over a websocket JSON
// protocol. Requests are handled one at a time; events fan out to every
// connected client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/witanlabs/jsheet/client"
	"github.com/witanlabs/jsheet/internal/session"
	"github.com/witanlabs/jsheet/internal/watch"
)

const writeTimeout = 5 * time.Second

type Options struct {
	// Autosave is a cron spec (e.g. "@every 30s") for persisting the
	// sidecar. Empty disables it.
	Autosave string
	// Watch reloads the sheet when another program changes the file.
	Watch bool
	// OriginPatterns are host patterns allowed to connect from a browser.
	OriginPatterns []string
	Logger         *slog.Logger
}

type Server struct {
	mu   sync.Mutex
	sess *session.Session

	log  *slog.Logger
	opts Options

	connsMu sync.Mutex
	conns   map[string]*websocket.Conn

	cron    *cron.Cron
	watcher *watch.Watcher
}

func New(sess *session.Session, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		sess:  sess,
		log:   logger,
		opts:  opts,
		conns: make(map[string]*websocket.Conn),
	}
	if opts.Autosave != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(opts.Autosave, s.autosave); err != nil {
			return nil, fmt.Errorf("invalid autosave schedule %q: %w", opts.Autosave, err)
		}
	}
	return s, nil
}

// Run starts autosave and file watching and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.cron != nil {
		s.cron.Start()
		defer func() { <-s.cron.Stop().Done() }()
		s.log.Info("autosave scheduled", "spec", s.opts.Autosave)
	}
	if s.opts.Watch {
		w, err := watch.New(s.sess.Path, 0)
		if err != nil {
			return err
		}
		defer w.Close()
		s.watcher = w
		s.log.Info("watching for external edits", "path", s.sess.Path)
		go func() {
			err := w.Run(ctx, s.onFileChanged, func(err error) {
				s.log.Warn("watcher error", "err", err)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("watcher stopped", "err", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// ServeHTTP accepts a websocket connection and serves requests on it until
// the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.opts.OriginPatterns})
	if err != nil {
		s.log.Warn("websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	id := uuid.NewString()
	s.connsMu.Lock()
	s.conns[id] = conn
	s.connsMu.Unlock()
	s.log.Info("client connected", "conn", id, "remote", r.RemoteAddr)

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, id)
		s.connsMu.Unlock()
		conn.CloseNow()
	}()

	ctx := r.Context()
	for {
		var req client.Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.log.Info("client disconnected", "conn", id)
			} else {
				s.log.Warn("client read failed", "conn", id, "err", err)
			}
			return
		}
		resp, event := s.Do(req)
		if !resp.OK {
			s.log.Warn("op failed", "conn", id, "op", req.Op, "kind", resp.Error.Kind, "err", resp.Error.Message)
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, conn, resp)
		cancel()
		if err != nil {
			s.log.Warn("client write failed", "conn", id, "err", err)
			return
		}
		if event != "" {
			s.broadcast(ctx, client.Message{Event: event}, id)
		}
	}
}

// Do handles one request under the session lock. event is non-empty when
// other clients should be told about a change.
func (s *Server) Do(req client.Request) (resp client.Message, event string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := ops[req.Op]
	if !ok {
		return failure(req.ID, errUnknownOp(req.Op)), ""
	}
	result, err := h.fn(s, req.Args)
	if err != nil {
		return failure(req.ID, err), ""
	}
	raw, err := encodeResult(result)
	if err != nil {
		return failure(req.ID, err), ""
	}
	return client.Message{ID: req.ID, OK: true, Result: raw}, h.event
}

func (s *Server) onFileChanged() {
	s.mu.Lock()
	changed, err := s.sess.ChangedOnDisk()
	if err == nil && changed {
		err = s.sess.Reload()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("reload failed", "path", s.sess.Path, "err", err)
		return
	}
	if !changed {
		return
	}
	s.log.Info("reloaded after external edit", "path", s.sess.Path)
	s.broadcast(context.Background(), client.Message{Event: client.EventReloaded}, "")
}

func (s *Server) autosave() {
	s.mu.Lock()
	err := s.sess.PersistMeta()
	s.mu.Unlock()
	if err != nil {
		s.log.Error("autosave failed", "err", err)
		return
	}
	s.log.Debug("autosaved sidecar", "path", s.sess.Path)
}

// broadcast sends m to every connection except skip.
func (s *Server) broadcast(ctx context.Context, m client.Message, skip string) {
	s.connsMu.Lock()
	targets := make(map[string]*websocket.Conn, len(s.conns))
	for id, c := range s.conns {
		if id != skip {
			targets[id] = c
		}
	}
	s.connsMu.Unlock()

	for id, c := range targets {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		if err := wsjson.Write(wctx, c, m); err != nil {
			s.log.Warn("event delivery failed", "conn", id, "event", m.Event, "err", err)
		}
		cancel()
	}
}
