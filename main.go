package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/witanlabs/jsheet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "jsheet:", err)
		os.Exit(1)
	}
}
