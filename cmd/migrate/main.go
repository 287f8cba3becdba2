package main

import (
	"flag"
	"log"
	"os"

	"github.com/jobtalk/jobtalk-backend/internal/config"
	"github.com/jobtalk/jobtalk-backend/internal/database"
	"github.com/jobtalk/jobtalk-backend/internal/migration"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	configPath := flag.String("config", "configs/config."+env+".yaml", "config file path")
	seed := flag.Bool("seed", false, "insert demo members and a listing into an empty database")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv(env)
	pkglogger.InitStructured(env)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if err := migration.Run(db); err != nil {
		log.Fatalf("[migrate] FAILED: %v", err)
	}
	pkglogger.Info("[migrate] schema up to date (%s)", cfg.Database.Driver)

	if *seed {
		if err := migration.Seed(db); err != nil {
			log.Fatalf("[migrate] seed FAILED: %v", err)
		}
		pkglogger.Info("[migrate] seed complete")
	}
}
