package main

import (
	"os"

	"github.com/fachebot/talk-wrapup/internal/logger"
)

// Version 构建时通过 -ldflags 设置
var Version = "dev"

func main() {
	app := newCLIApp()
	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%s", err)
	}
}
