package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const envPrefix = "ACREDITACION"

type Config struct {
	SpreadsheetID    string        `mapstructure:"SPREADSHEET_ID"`
	CredentialsPath  string        `mapstructure:"CREDENTIALS_PATH"`
	DataDir          string        `mapstructure:"DATA_DIR"`
	OAuthRedirectURL string        `mapstructure:"OAUTH_REDIRECT_URL"`
	UserInfoURL      string        `mapstructure:"USERINFO_URL"`
	RevokeURL        string        `mapstructure:"REVOKE_URL"`
	SheetsEndpoint   string        `mapstructure:"SHEETS_ENDPOINT"`
	Addr             string        `mapstructure:"ADDR"`
	Timezone         string        `mapstructure:"TIMEZONE"`
	NoticeDelay      time.Duration `mapstructure:"NOTICE_DELAY"`
	NotesQuietPeriod time.Duration `mapstructure:"NOTES_QUIET_PERIOD"`
	RosterPageSize   int           `mapstructure:"ROSTER_PAGE_SIZE"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	GinMode          string        `mapstructure:"GIN_MODE"`
}

var defaults = map[string]any{
	"SPREADSHEET_ID":     "16RKXKDq_uZD6AbA9PX868hdNRNrIu_AB9ufXR3EzElQ",
	"CREDENTIALS_PATH":   ".local/credentials.json",
	"DATA_DIR":           ".local",
	"OAUTH_REDIRECT_URL": "http://localhost:8085/callback",
	"USERINFO_URL":       "https://www.googleapis.com/oauth2/v3/userinfo",
	"REVOKE_URL":         "https://oauth2.googleapis.com/revoke",
	"SHEETS_ENDPOINT":    "",
	"ADDR":               "127.0.0.1:8080",
	"TIMEZONE":           "America/Santiago",
	"NOTICE_DELAY":       2500 * time.Millisecond,
	"NOTES_QUIET_PERIOD": 500 * time.Millisecond,
	"ROSTER_PAGE_SIZE":   10,
	"RATE_LIMIT_RPS":     20.0,
	"RATE_LIMIT_BURST":   40,
	"GIN_MODE":           "release",
}

// Load reads ACREDITACION_* environment variables, plus an optional .env in
// the working directory, on top of the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.AddConfigPath("./")
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	// A missing .env is fine; env vars and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to read .env: %v", err)
		}
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %v", err)
	}

	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%s_SPREADSHEET_ID must not be empty", envPrefix)
	}
	if cfg.RosterPageSize <= 0 {
		return nil, fmt.Errorf("%s_ROSTER_PAGE_SIZE must be positive, got %d", envPrefix, cfg.RosterPageSize)
	}
	if cfg.NotesQuietPeriod <= 0 {
		return nil, fmt.Errorf("%s_NOTES_QUIET_PERIOD must be positive, got %s", envPrefix, cfg.NotesQuietPeriod)
	}

	return &cfg, nil
}

// Location resolves the civil timezone used for accreditation timestamps.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %v", c.Timezone, err)
	}
	return loc, nil
}
