package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config file and environment naming
const (
	ConfigName = "ytplay"
	EnvPrefix  = "YTPLAY"
)

// EnvKeyReplacer maps config keys to environment variable suffixes
var EnvKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Field is one tunable with its default
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env returns the environment variable overriding the field
func (f Field) Env() string {
	return EnvPrefix + "_" + strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
}

// Fields lists every tunable and its default
var Fields = []Field{
	{"download.cleanup_delay", time.Second, "Delay before leftover artifacts are removed"},
	{"download.retry_attempts", 2, "Engine attempts per job"},
	{"download.retry_delay", 2 * time.Second, "Pause between engine attempts"},
	{"download.progress_interval", 500 * time.Millisecond, "Minimum interval between engine progress reports"},
	{"playback.poll_interval", time.Second, "Status poll period"},
	{"playback.quality_settle", 100 * time.Millisecond, "Pause before reloading on a quality switch"},
	{"playback.quality_poll_delay", 200 * time.Millisecond, "Wait before the first quality switch poll"},
	{"playback.quality_poll_interval", 100 * time.Millisecond, "Quality switch poll period"},
	{"playback.quality_poll_attempts", 20, "Quality switch polls before giving up"},
	{"playback.output_settle", 100 * time.Millisecond, "Wait before restoring position after an output switch"},
	{"playback.volume", 70, "Initial volume"},
	{"playback.seek_step", 5 * time.Second, "Skip forward and backward step"},
	{"playback.mpv_binary", "mpv", "mpv executable"},
	{"playback.cache_secs", 3, "Engine read-ahead cache in seconds"},
	{"log.level", "info", "Log level"},
	{"log.console", true, "Human readable console logs"},
	{"log.file", "", "Rotating log file, empty disables it"},
	{"log.max_size_mb", 10, "Log file size before rotation"},
	{"log.max_backups", 3, "Rotated log files kept"},
	{"log.max_age_days", 28, "Days rotated log files are kept"},
	{"log.compress", false, "Compress rotated log files"},
	{"metrics.addr", "", "Address of the Prometheus endpoint, empty disables it"},
}

// Tuning is the decoded tunable configuration
type Tuning struct {
	Download DownloadTuning `mapstructure:"download"`
	Playback PlaybackTuning `mapstructure:"playback"`
	Log      LogTuning      `mapstructure:"log"`
	Metrics  MetricsTuning  `mapstructure:"metrics"`
}

// DownloadTuning configures the download worker
type DownloadTuning struct {
	CleanupDelay     time.Duration `mapstructure:"cleanup_delay"`
	RetryAttempts    uint          `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// PlaybackTuning configures the playback session and engine
type PlaybackTuning struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	QualitySettle       time.Duration `mapstructure:"quality_settle"`
	QualityPollDelay    time.Duration `mapstructure:"quality_poll_delay"`
	QualityPollInterval time.Duration `mapstructure:"quality_poll_interval"`
	QualityPollAttempts int           `mapstructure:"quality_poll_attempts"`
	OutputSettle        time.Duration `mapstructure:"output_settle"`
	Volume              int           `mapstructure:"volume"`
	SeekStep            time.Duration `mapstructure:"seek_step"`
	MPVBinary           string        `mapstructure:"mpv_binary"`
	CacheSecs           int           `mapstructure:"cache_secs"`
}

// LogTuning configures logging
type LogTuning struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsTuning configures the metrics endpoint
type MetricsTuning struct {
	Addr string `mapstructure:"addr"`
}

// NewViper returns a viper instance with defaults, environment bindings and
// the config search path set. configDir may be empty.
func NewViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigName)
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()
	for _, f := range Fields {
		v.SetDefault(f.Key, f.Value)
	}
	return v
}

// DefaultConfigDir returns the user config directory for ytplay
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ConfigName)
}

// ReadConfig reads the config file if there is one
func ReadConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadTuning decodes v into a Tuning with out-of-range values corrected
func LoadTuning(v *viper.Viper) (Tuning, error) {
	var t Tuning
	if err := v.Unmarshal(&t); err != nil {
		return Tuning{}, fmt.Errorf("decode tuning: %w", err)
	}

	if t.Download.RetryAttempts < 1 {
		t.Download.RetryAttempts = 1
	}
	if t.Playback.QualityPollAttempts < 1 {
		t.Playback.QualityPollAttempts = 1
	}
	if t.Playback.Volume < 0 {
		t.Playback.Volume = 0
	}
	if t.Playback.Volume > 100 {
		t.Playback.Volume = 100
	}
	if t.Playback.PollInterval <= 0 {
		t.Playback.PollInterval = time.Second
	}
	return t, nil
}
