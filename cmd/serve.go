package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/config"
	"github.com/witanlabs/jsheet/internal/server"
)

var (
	serveAddr     string
	serveWatch    bool
	serveAutosave string
	serveOrigins  []string
	serveLogJSON  bool
	serveDebug    bool
	serveSave     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve one sheet to editors over a websocket",
	Long: `Open a sheet and serve it over a websocket JSON protocol so editors can
read and change it. Requests are applied one at a time; every other client is
told when the sheet changes.

Settings fall back to the environment (JSHEET_ADDR, JSHEET_AUTOSAVE), then to
the config file (see 'jsheet config').

With --watch, changes made to the file by other programs are reloaded and
clients receive a "reloaded" event. With --autosave, the metadata sidecar is
written on a cron schedule.

Examples:
  jsheet serve party.json
  jsheet serve party.json --addr :8080 --watch
  jsheet serve party.json --autosave "@every 30s" --log-json`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default "+config.DefaultAddr+")")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload when the file changes on disk")
	serveCmd.Flags().StringVar(&serveAutosave, "autosave", "", `Cron schedule for persisting metadata, e.g. "@every 30s"`)
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", nil, "Browser origins allowed to connect (host patterns)")
	serveCmd.Flags().BoolVar(&serveLogJSON, "log-json", false, "Log as JSON instead of text")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Log debug events")
	serveCmd.Flags().BoolVar(&serveSave, "save-on-exit", false, "Save the sheet when the server stops")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(json, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg := loadConfig()
	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	autosave := cfg.Autosave
	if cmd.Flags().Changed("autosave") {
		autosave = serveAutosave
	}
	watch := cfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = serveWatch
	}

	log := newLogger(serveLogJSON, serveDebug)
	sess, err := openSession(args[0], true)
	if err != nil {
		return err
	}
	srv, err := server.New(sess, server.Options{
		Autosave:       autosave,
		Watch:          watch,
		OriginPatterns: serveOrigins,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	log.Info("serving", "path", sess.Path, "addr", "ws://"+ln.Addr().String()+"/", "rows", sess.State.RowCount())

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", "err", err)
	}
	if err := <-runErr; err != nil {
		log.Error("background tasks failed", "err", err)
	}

	if serveSave {
		if err := sess.Save(); err != nil {
			return err
		}
		log.Info("saved", "path", sess.Path)
	} else if err := sess.PersistMeta(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
