package main

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"roastblur/internal/game"
)

// App holds the shared server state. Handlers are methods on App.
type App struct {
	Config       Config
	IsProduction bool
	Generator    game.Generator

	// Sessions maps a session ID to its *game.Controller.
	Sessions     *cache.Cache
	SessionMutex sync.Mutex // serializes get-or-create on Sessions

	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex

	StartTime time.Time
}

func newApp(cfg Config, gen game.Generator) *App {
	app := &App{
		Config:       cfg,
		IsProduction: cfg.isProduction(),
		Generator:    gen,
		Sessions:     cache.New(cfg.SessionTimeout, cfg.SessionTimeout/4),
		LimiterMap:   make(map[string]*rate.Limiter),
		StartTime:    time.Now(),
	}
	// An idle session's snapshot is as old as the session itself.
	app.Sessions.OnEvicted(func(sessionID string, _ any) {
		if err := deleteSessionFile(cfg.SessionDir, sessionID); err != nil {
			logWarn("Failed to remove expired session file %s: %v", sessionID, err)
		}
		logInfo("Session expired: %s", sessionID)
	})
	return app
}
