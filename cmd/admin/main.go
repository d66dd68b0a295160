package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/eventsignup/internal/admincli"
)

func main() {

	ctx := context.Background()

	if err := admincli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}

}
