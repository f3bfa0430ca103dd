// Command migrate applies or inspects the schema. Production servers do not migrate on boot.
package main

import (
	"flag"
	"fmt"
	"strings"

	"pulse/internal/config"
	"pulse/internal/database"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("schema applied")
	case "status":
		for _, line := range status(db) {
			log.Info(line)
		}
	default:
		return usage()
	}
	return nil
}

func status(db *gorm.DB) []string {
	m := db.Migrator()
	var out []string
	for _, model := range database.PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		table := fmt.Sprintf("%T", model)
		if err := stmt.Parse(model); err == nil {
			table = stmt.Schema.Table
		}
		state := "missing"
		if m.HasTable(model) {
			state = "present"
		}
		out = append(out, fmt.Sprintf("%-14s %s", table, state))
	}
	return out
}
