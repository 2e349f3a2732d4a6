package main

import (
	"os"

	"github.com/intraceai/archive-viewer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
