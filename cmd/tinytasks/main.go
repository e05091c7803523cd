package main

import (
	"os"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/cli"
)

var (
	version string = "dev"
	commit  string = "unknown"
)

func main() {
	if err := cli.NewRootCommand(version, commit).Execute(); err != nil {
		os.Exit(1)
	}
}
