// Ijoka provides graph-backed observability and orchestration for AI coding
// agents: it attributes tool/file activity to Features, arbitrates claims
// between concurrent sessions, tracks plan progress, detects stuckness, and
// surfaces analytics over the resulting event graph.
package main

import (
	"os"
	"runtime/debug"

	"github.com/Shakes-tzd/ijoka/internal/commands"
)

// version is set via ldflags (-X main.version=v1.0.0) or detected
// automatically from Go module info embedded by go install.
var version = "dev"

func main() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	err := commands.Execute(version)
	os.Exit(commands.ExitCode(err))
}
