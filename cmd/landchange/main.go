// Command landchange runs the Kericho land-cover change analysis.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/geochange/landchange/cmd"
	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/iocache"
	"github.com/geochange/landchange/internal/logger"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()
	logger.Setup()

	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		contract.LogWarn("landchange", err)
		os.Exit(1)
	}
}
