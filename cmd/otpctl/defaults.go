package main

import (
	"tg-otp-relay/backend/internal/config"
	"tg-otp-relay/backend/internal/db/migrate"
	"tg-otp-relay/backend/internal/storage"
)

func defaultApp() *app {
	return &app{
		loadConfig: config.Load,
		openStores: storage.Open,
		migrate:    migrate.Run,
	}
}
