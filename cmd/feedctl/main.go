package main

import (
	"context"
	"fmt"
	"os"

	"github.com/msomdec/feedline/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "feedctl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
