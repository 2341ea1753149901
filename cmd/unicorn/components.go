package main

import (
	"log/slog"

	"github.com/diamondlab/unicorn/internal/bus"
	"github.com/diamondlab/unicorn/internal/cache"
	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/repository"
)

// components bundles the initialized infrastructure for one command.
type components struct {
	repo  domain.Repository
	cache domain.Cache
	bus   domain.EventBus
}

func initComponents(cfg *domain.Config) (*components, error) {
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, err
	}
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		repo.Close()
		return nil, err
	}
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		cacheImpl.Close()
		repo.Close()
		return nil, err
	}
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	return &components{
		repo:  repo,
		cache: cacheImpl,
		bus:   busImpl,
	}, nil
}

func (c *components) close() {
	if err := c.bus.Close(); err != nil {
		slog.Error("failed to close event bus", "error", err)
	}
	if err := c.cache.Close(); err != nil {
		slog.Error("failed to close cache", "error", err)
	}
	if err := c.repo.Close(); err != nil {
		slog.Error("failed to close repository", "error", err)
	}
}
