package main

import (
	"os"

	"github.com/Alnumo/therapy-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
