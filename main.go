package main

import (
	"log"

	"github.com/thiagokokada/gitk-core/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("gitk-core: %v", err)
	}
}
