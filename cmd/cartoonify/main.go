package main

import (
	"os"

	"cartoonify/cmd/cartoonify/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
