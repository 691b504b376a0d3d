package main

import (
	"log"

	"github.com/rzpatryk/BuggyVege/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("app.New: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application.Run: %v", err)
	}
}
