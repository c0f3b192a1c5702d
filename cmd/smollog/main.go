package main

import (
	"os"

	"github.com/Iron-Ham/smollog/internal/cmd"
)

func main() {
	os.Exit(cmd.Report(os.Stderr, cmd.Execute()))
}
