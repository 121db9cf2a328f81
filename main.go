package main

import (
	"os"

	"askai/cli"
)

const (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

func main() {
	os.Exit(cli.Execute(Version))
}
