package main

import (
	"os"

	"github.com/mct-integration/orderbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
