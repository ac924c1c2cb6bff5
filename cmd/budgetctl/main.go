package main

import (
	"os"

	"budget/cmd/budgetctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
