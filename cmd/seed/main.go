// Package main seeds a fresh database with a superadmin account and a few
// sample letters, so local development starts with something to look at.
//
// Usage:
//
//	go run ./cmd/seed -db data/recuerdos.db -email amor@example.com \
//	    -username amor -password secret
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/model"
	sqliteRepo "github.com/mcastellanos/recuerdos/internal/repository/sqlite"
)

func main() {
	var (
		dbPath   = flag.String("db", "data/recuerdos.db", "path to the SQLite database")
		email    = flag.String("email", "amor@example.com", "superadmin email")
		username = flag.String("username", "amor", "superadmin username")
		password = flag.String("password", "", "superadmin password (required)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *password == "" {
		logger.Error("-password is required")
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqliteRepo.New(*dbPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	hash, err := auth.NewPasswordService().Hash(*password)
	if err != nil {
		logger.Error("failed to hash password", slog.String("error", err.Error()))
		os.Exit(1)
	}

	admin := &model.User{
		Email:        *email,
		Username:     *username,
		DisplayName:  *username,
		PasswordHash: hash,
		Role:         model.RoleSuperAdmin,
	}
	if err := db.CreateUser(ctx, admin); err != nil {
		logger.Error("failed to create superadmin", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("superadmin created", slog.String("id", admin.ID), slog.String("username", admin.Username))

	published := time.Now()
	letters := []model.Letter{
		{
			Title:       "Bienvenida",
			Icon:        "💌",
			Content:     "Nuestro primer recuerdo en este rincón.",
			PublishedAt: &published,
		},
		{
			Title:   "Borrador",
			Icon:    "📝",
			Content: "Una carta que todavía no está lista.",
		},
	}
	for i := range letters {
		letters[i].CreatedBy = admin.Ref()
		if err := db.CreateLetter(ctx, &letters[i]); err != nil {
			logger.Error("failed to create sample letter",
				slog.String("title", letters[i].Title),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("sample letter created", slog.String("id", letters[i].ID), slog.String("title", letters[i].Title))
	}
}
