package main

import (
	"os"

	"github.com/sadikovi/pulsar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
