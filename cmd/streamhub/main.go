package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/streamhub/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("streamhub exited", "command", os.Args[1:], "error", err)
		os.Exit(1)
	}
}
