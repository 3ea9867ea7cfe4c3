package main

import (
	"os"
	"runtime/debug"

	"github.com/mistakeknot/taskdeck/internal/cli"
)

func main() {
	if err := cli.Execute(buildInfoString()); err != nil {
		// cobra already prints; just exit non-zero
		os.Exit(1)
	}
}

func buildInfoString() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var rev, modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				rev = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if modified == "true" {
				rev += "-dirty"
			}
			return rev
		}
	}
	return "dev"
}
