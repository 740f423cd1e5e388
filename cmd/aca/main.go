package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aca-dev/aca/internal/redact"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	err := rootCmd.Execute()
	if merr := writeMetrics(); merr != nil {
		fmt.Fprintln(os.Stderr, "aca: writing metrics:", merr)
	}
	if err != nil {
		var ece *exitCodeError
		if errors.As(err, &ece) {
			if ece.msg != "" {
				fmt.Fprintln(os.Stderr, redact.String(ece.msg))
			}
			os.Exit(ece.code)
		}
		fmt.Fprintln(os.Stderr, redact.String(err.Error()))
		os.Exit(ExitError)
	}
}
