package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-directory/config"
	"github.com/oksasatya/user-directory/internal/application"
	"github.com/oksasatya/user-directory/internal/container"
	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

type demoUser struct {
	name   string
	email  string
	age    int
	active bool
}

var demoUsers = []demoUser{
	{"Ada Lovelace", "ada@example.com", 36, true},
	{"Alan Turing", "alan@example.com", 41, true},
	{"Grace Hopper", "grace@example.com", 85, true},
	{"Edsger Dijkstra", "edsger@example.com", 72, false},
	{"Barbara Liskov", "barbara@example.com", 84, true},
	{"Ken Thompson", "ken@example.com", 81, true},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	app, err := container.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer app.Close(context.Background())

	created, skipped := 0, 0
	for _, d := range demoUsers {
		age, active := d.age, d.active
		u, err := app.Service.CreateUser(ctx, entity.NewUser{Name: d.name, Email: d.email, Age: &age, IsActive: &active})
		switch {
		case errors.Is(err, application.ErrEmailTaken):
			skipped++
			continue
		case err != nil:
			log.Fatalf("failed to seed %s: %v", d.email, err)
		}
		created++
		logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email}).Info("seeded user")
	}
	helpers.LogInfo(logger, "seed finished", logrus.Fields{"created": created, "skipped": skipped, "store": cfg.StoreDriver})
}
