package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/koulio-auth/internal/buildinfo"
	"github.com/dmitrijs2005/koulio-auth/internal/client/cli"
	"github.com/dmitrijs2005/koulio-auth/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(cfg, os.Stdin, os.Stdout)
	app.Run(ctx)

}
