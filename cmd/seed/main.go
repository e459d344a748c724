package main

import (
	"flag"
	"os"

	"insight/internal/cli"
	"insight/internal/log"
	"insight/internal/seed"
)

func main() {
	dbPath := flag.String("db", "data/warehouse.db", "path of the SQLite warehouse to create")
	reset := flag.Bool("reset", false, "roll every table back before seeding")
	flag.Parse()

	logger := cli.SetupLogger(nil).WithComponent(log.ComponentSeed)

	if *reset {
		if err := seed.Reset(*dbPath); err != nil {
			logger.Error("Failed to reset warehouse", log.FieldError, err, "path", *dbPath)
			os.Exit(1)
		}
		logger.Info("Warehouse reset", "path", *dbPath)
	}

	if err := seed.Run(*dbPath); err != nil {
		logger.Error("Failed to seed warehouse", log.FieldError, err, "path", *dbPath)
		os.Exit(1)
	}

	logger.Info("Warehouse seeded",
		"path", *dbPath,
		"tables", seed.Tables,
		"url", "sqlite:///"+*dbPath)
}
