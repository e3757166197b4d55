package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/clipsync/internal/buildinfo"
	"github.com/dmitrijs2005/clipsync/internal/client/app"
	"github.com/dmitrijs2005/clipsync/internal/client/cli"
	"github.com/dmitrijs2005/clipsync/internal/client/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(cfg, app.New)
	root.Version = buildinfo.Version

	if err := cli.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
