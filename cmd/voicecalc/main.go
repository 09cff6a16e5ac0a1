package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/voicecalc/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Version = version

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "voicecalc:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
