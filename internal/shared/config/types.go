package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	Timezone       string   `mapstructure:"timezone"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SweepConfig controls the maintenance reconciliation job.
type SweepConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	TimeoutMinutes  int  `mapstructure:"timeout_minutes"`
}

func (s *SweepConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

func (s *SweepConfig) Timeout() time.Duration {
	if s.TimeoutMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.TimeoutMinutes) * time.Minute
}

// AllocationConfig tunes the slot allocator.
type AllocationConfig struct {
	// MaxRetries bounds the optimistic retry loop before surfacing a
	// concurrent modification error to the caller.
	MaxRetries int `mapstructure:"max_retries"`
	// EntitlementCacheTTLSeconds is how long an entitlement snapshot may be
	// served from cache before falling back to the store.
	EntitlementCacheTTLSeconds int `mapstructure:"entitlement_cache_ttl_seconds"`
}

func (a *AllocationConfig) Retries() int {
	if a.MaxRetries <= 0 {
		return 3
	}
	return a.MaxRetries
}

func (a *AllocationConfig) EntitlementCacheTTL() time.Duration {
	if a.EntitlementCacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.EntitlementCacheTTLSeconds) * time.Second
}
