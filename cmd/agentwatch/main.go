package main

import (
	"os"

	"github.com/gzhole/agentwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
