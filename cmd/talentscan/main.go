package main

import (
	"os"

	"talentscan/cv-screener/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
