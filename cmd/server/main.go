package main

import (
	"context"
	"log"
	_ "time/tzdata"

	"github.com/dmitrijs2005/eventsignup/internal/server"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
