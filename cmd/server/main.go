package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/sanposhin/internal/server"
	"github.com/dmitrijs2005/sanposhin/internal/server/config"
)

func main() {

	ctx := context.Background()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Fatalf("sanposhin server: %v", err)
	}

	app.Run(ctx)

}
