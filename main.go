package main

import (
	"os"

	"github.com/moto-nrw/fingerprint-edge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
