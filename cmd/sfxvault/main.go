// Package main provides the entry point for the sfxvault CLI.
package main

import (
	"os"

	"github.com/sfxvault/sfxvault/cmd/sfxvault/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
