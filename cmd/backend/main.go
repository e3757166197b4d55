// Command backend runs the clipsync development backend.
//
//	backend [flags]              serve the mutation API
//	backend token <user> [flags] print an access token for user
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/clipsync/internal/backend"
	"github.com/dmitrijs2005/clipsync/internal/backend/auth"
	"github.com/dmitrijs2005/clipsync/internal/backend/config"
	"github.com/dmitrijs2005/clipsync/internal/buildinfo"
)

func main() {
	args := os.Args[1:]

	if len(args) > 0 && args[0] == "token" {
		if len(args) < 2 {
			log.Fatal("usage: backend token <user> [flags]")
		}
		cfg, err := config.LoadConfig(args[2:])
		if err != nil {
			log.Fatal(err)
		}
		tok, err := auth.GenerateToken(args[1], []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(tok)
		return
	}

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	app, err := backend.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
