package main

import (
	"os"

	"github.com/ytcurate/ytcurate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
