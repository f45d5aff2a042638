package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ExitError signals a non-zero exit code without printing an error message.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return "" }

var stdout io.Writer = os.Stdout

func jsonPrint(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printf(format string, args ...any) {
	fmt.Fprintf(stdout, format, args...)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
