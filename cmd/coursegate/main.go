package main

import (
	"fmt"
	"os"

	"github.com/coursegate/coursegate/cmd/coursegate/cli"
)

// Populated by the release build through -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, "coursegate:", err)
		os.Exit(1)
	}
}
