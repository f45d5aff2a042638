package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/client"
	"github.com/witanlabs/jsheet/internal/server"
)

var (
	callAddr    string
	callTimeout time.Duration
	callFollow  bool
)

var callCmd = &cobra.Command{
	Use:   "call <op> [args-json]",
	Short: "Send one request to a running 'jsheet serve'",
	Long: `Send one request to a running server and print the JSON result.

Rows are 0-indexed in the protocol. Use --follow to keep the connection open
and print server events as they arrive.

Examples:
  jsheet call snapshot
  jsheet call set_cell '{"row": 0, "column": "hp", "input": "40"}'
  jsheet call set_formula '{"row": 1, "column": "max", "formula": "hp * 2"}'
  jsheet call save
  jsheet call --follow snapshot`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callAddr, "addr", "", "Server address (default from config)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "Request timeout")
	callCmd.Flags().BoolVar(&callFollow, "follow", false, "Print events until interrupted")
	rootCmd.AddCommand(callCmd)
}

func serverURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "ws://" + addr + "/"
}

func runCall(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		names := server.OpNames()
		sort.Strings(names)
		printf("ops: %s\n", strings.Join(names, ", "))
		return nil
	}
	cmd.SilenceUsage = true

	var params any
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("args must be a JSON object, got %q", args[1])
		}
		params = json.RawMessage(args[1])
	}

	addr := callAddr
	if addr == "" {
		addr = loadConfig().Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	conn, err := client.NewDialer().Dial(ctx, serverURL(addr))
	if err != nil {
		return err
	}
	defer conn.Close()

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	result, err := conn.CallRaw(callCtx, args[0], params)
	cancel()
	if err != nil {
		return err
	}
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}
	if err := jsonPrint(result); err != nil {
		return err
	}

	if !callFollow {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-conn.Events():
			if !ok {
				return nil
			}
			if err := jsonPrint(ev); err != nil {
				return err
			}
		}
	}
}
