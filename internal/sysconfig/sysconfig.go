// Package sysconfig holds the portal-wide switches controlled by the super admin.
package sysconfig

import (
	"context"
	"log/slog"
	"strings"

	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/store"
)

// Config is the persisted system configuration.
type Config struct {
	RecruitmentOpen bool    `json:"recruitmentOpen"`
	Announcement    *string `json:"announcement"`
	MaintenanceMode bool    `json:"maintenanceMode"`
}

// Default is used until a super admin saves a configuration.
func Default() Config {
	return Config{RecruitmentOpen: true}
}

// Normalize drops a blank announcement.
func (c *Config) Normalize() {
	if c.Announcement == nil {
		return
	}
	trimmed := strings.TrimSpace(*c.Announcement)
	if trimmed == "" {
		c.Announcement = nil
		return
	}
	c.Announcement = &trimmed
}

// Validate accepts every combination of switches.
func (c *Config) Validate() error {
	return nil
}

// Read loads the configuration inside tx. tx must hold store.SystemConfig.
func Read(tx *store.Tx) (Config, error) {
	var cfg Config
	if err := tx.Load(store.SystemConfig, &cfg, Default()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type Service struct {
	store  *store.Store
	audit  *audit.Log
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(st *store.Store, auditLog *audit.Log, opts ...Option) *Service {
	s := &Service{store: st, audit: auditLog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current configuration, persisting the default on first read.
func (s *Service) Get(ctx context.Context) (Config, error) {
	var cfg Config
	if err := s.store.Load(ctx, store.SystemConfig, &cfg, Default()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save replaces the configuration wholesale.
func (s *Service) Save(ctx context.Context, cfg Config) (Config, error) {
	cfg.Normalize()
	err := s.store.RunInTx(ctx, []store.Collection{store.SystemConfig, store.SystemLogs}, func(tx *store.Tx) error {
		if err := tx.Save(store.SystemConfig, cfg); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionUpdateConfig, "Updated Global System Configuration")
	})
	if err != nil {
		return Config{}, err
	}
	s.logger.InfoContext(ctx, "system configuration updated",
		"recruitment_open", cfg.RecruitmentOpen,
		"maintenance_mode", cfg.MaintenanceMode,
	)
	return cfg, nil
}

// Public is the view shown on the public site. A storage failure falls back
// to the default so the landing page still renders.
func (s *Service) Public(ctx context.Context) Config {
	cfg, err := s.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "system configuration unavailable, serving default", "error", err)
		return Default()
	}
	return cfg
}
