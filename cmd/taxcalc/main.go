package main

import (
	"os"

	"taxdash/cmd/taxcalc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
