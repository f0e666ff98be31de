package main

import (
	"os"

	"github.com/patrickkidd/ccmemory/cmd/ccmemory"
)

func main() {
	if err := ccmemory.Execute(); err != nil {
		os.Exit(1)
	}
}
