package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gptcatalog/internal/config"
	"gptcatalog/internal/db"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
	"gptcatalog/internal/service"
)

func main() {
	n := flag.Int("n", 10, "number of invite codes to generate")
	ttl := flag.Duration("ttl", 0, "code lifetime, e.g. 720h; 0 means the codes never expire")
	asJSON := flag.Bool("json", false, "print the generated codes as JSON")
	flag.Parse()

	// status goes to stderr so stdout carries only the codes
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: os.Stderr})

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	invites := service.NewInviteService(repository.NewInviteRepository(gormDB))
	codes, err := invites.Generate(ctx, *n, *ttl)
	if err != nil {
		log.Error("failed to generate invite codes", "error", err)
		os.Exit(1)
	}
	log.Info("invite codes generated", "count", len(codes), "ttl", *ttl)

	if err := printCodes(codes, *asJSON); err != nil {
		log.Error("failed to print invite codes", "error", err)
		os.Exit(1)
	}
}

type inviteOutput struct {
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func printCodes(codes []model.InviteCode, asJSON bool) error {
	if !asJSON {
		for _, c := range codes {
			fmt.Println(c.Code)
		}
		return nil
	}
	out := make([]inviteOutput, 0, len(codes))
	for _, c := range codes {
		out = append(out, inviteOutput{Code: c.Code, ExpiresAt: c.ExpiresAt})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
