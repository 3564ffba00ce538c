// Package config resolves runtime settings from defaults, an optional YAML
// file and STUDYD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	DBPath              string `yaml:"db_path"`
	Principal           string `yaml:"principal"`
	MaxSlotAttempts     int    `yaml:"max_slot_attempts"`
	SlotStepMinutes     int    `yaml:"slot_step_minutes"`
	CalendarLeadMinutes int    `yaml:"calendar_lead_minutes"`
	GanttPaddingDays    int    `yaml:"gantt_padding_days"`
	SweepHour           int    `yaml:"sweep_hour"`
	SchedulerBuffer     int    `yaml:"scheduler_buffer"`
	LogLevel            string `yaml:"log_level"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:              "studyd.db",
		Principal:           defaultPrincipal(),
		MaxSlotAttempts:     24,
		SlotStepMinutes:     60,
		CalendarLeadMinutes: 10,
		GanttPaddingDays:    7,
		SweepHour:           0,
		SchedulerBuffer:     64,
		LogLevel:            "info",
	}
}

func defaultPrincipal() string {
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		return u
	}
	return "student"
}

// LoadFile overlays the YAML file at path onto base. Keys missing from the
// file keep their base value.
func LoadFile(path string, base RuntimeConfig) (RuntimeConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	cfg := base
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies STUDYD_* overrides. Unparseable or out-of-range values are
// ignored.
func FromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("STUDYD_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("STUDYD_PRINCIPAL"); ok {
		cfg.Principal = v
	}
	if v, ok := getEnvInt("STUDYD_MAX_SLOT_ATTEMPTS"); ok && v > 0 {
		cfg.MaxSlotAttempts = v
	}
	if v, ok := getEnvInt("STUDYD_SLOT_STEP_MINUTES"); ok && v > 0 {
		cfg.SlotStepMinutes = v
	}
	if v, ok := getEnvInt("STUDYD_CALENDAR_LEAD_MINUTES"); ok && v >= 0 {
		cfg.CalendarLeadMinutes = v
	}
	if v, ok := getEnvInt("STUDYD_GANTT_PADDING_DAYS"); ok && v >= 0 {
		cfg.GanttPaddingDays = v
	}
	if v, ok := getEnvInt("STUDYD_SWEEP_HOUR"); ok && v >= 0 && v < 24 {
		cfg.SweepHour = v
	}
	if v, ok := getEnvInt("STUDYD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvString("STUDYD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	return cfg
}

// Resolve builds the effective config: defaults, then the file at path when
// it is non-empty, then the environment.
func Resolve(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	if path != "" {
		loaded, err := LoadFile(path, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg = FromEnv(cfg)
	return cfg, cfg.Validate()
}

func (c RuntimeConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("config: db_path is required"))
	}
	if strings.TrimSpace(c.Principal) == "" {
		errs = append(errs, errors.New("config: principal is required"))
	}
	if c.MaxSlotAttempts <= 0 {
		errs = append(errs, fmt.Errorf("config: max_slot_attempts must be positive, got %d", c.MaxSlotAttempts))
	}
	if c.SlotStepMinutes <= 0 {
		errs = append(errs, fmt.Errorf("config: slot_step_minutes must be positive, got %d", c.SlotStepMinutes))
	}
	if c.CalendarLeadMinutes < 0 {
		errs = append(errs, fmt.Errorf("config: calendar_lead_minutes must not be negative, got %d", c.CalendarLeadMinutes))
	}
	if c.GanttPaddingDays < 0 {
		errs = append(errs, fmt.Errorf("config: gantt_padding_days must not be negative, got %d", c.GanttPaddingDays))
	}
	if c.SweepHour < 0 || c.SweepHour > 23 {
		errs = append(errs, fmt.Errorf("config: sweep_hour must be in [0,23], got %d", c.SweepHour))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c RuntimeConfig) SlotStep() time.Duration {
	return time.Duration(c.SlotStepMinutes) * time.Minute
}

func (c RuntimeConfig) GanttPadding() time.Duration {
	return time.Duration(c.GanttPaddingDays) * 24 * time.Hour
}

// Logger returns a text logger at the configured level writing to w.
func (c RuntimeConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", raw)
	}
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
