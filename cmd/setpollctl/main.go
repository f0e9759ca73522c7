package main

import (
	"os"

	"github.com/veridian-identity/setpoll/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
