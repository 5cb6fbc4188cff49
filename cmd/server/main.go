package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/willcounter/internal/server"
)

func main() {

	ctx := context.Background()
	app, err := server.NewApp()

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
