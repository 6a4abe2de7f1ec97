package main

import (
	"os"

	"github.com/declarative-routeros/rosexec/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
