// Package main is the entry point for the oluso identity platform server.
package main

import (
	"github.com/SyndewTech/Oluso-sub010/cmd/oluso/app"
	"github.com/SyndewTech/Oluso-sub010/pkg/logger"
)

func main() {
	// logger.Fatalf exits the process on the zap fatal level, so there is
	// no code to run after a non-nil error here.
	if err := app.NewRootCmd().Execute(); err != nil {
		logger.Fatalf("%v", err)
	}
}
