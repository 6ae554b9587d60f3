package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultBaseURL   = "https://api-public.cs-prod.leetify.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRate      = 1.0
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// ErrMissingAPIKey is returned when a command needs the API credential.
var ErrMissingAPIKey = errors.New("LEETIFY_API_KEY is not set")

// Settings is the resolved configuration used by commands.
type Settings struct {
	APIKey    string
	BaseURL   string        `validate:"required,url"`
	Timeout   time.Duration `validate:"gt=0"`
	Rate      float64       `validate:"gt=0"`
	DataDir   string        `validate:"required"`
	DBPath    string        `validate:"required"`
	LogLevel  string        `validate:"oneof=trace debug info warn warning error disabled off"`
	LogFormat string        `validate:"oneof=console json"`
	Players   []int64
}

var validate = validator.New()

// Resolve merges defaults, file values and environment values, in that
// order of increasing precedence.
func Resolve(file FileConfig, e Env) (Settings, error) {
	s := Settings{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		Rate:      DefaultRate,
		DataDir:   DefaultDataDir(),
		DBPath:    DefaultDBPath(),
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}

	if file.API.BaseURL != nil {
		s.BaseURL = *file.API.BaseURL
	}
	if file.API.Timeout != nil {
		s.Timeout = file.API.Timeout.Duration
	}
	if file.API.Rate != nil {
		s.Rate = *file.API.Rate
	}
	if file.Storage.DataDir != nil {
		s.DataDir = *file.Storage.DataDir
	}
	if file.Log.Level != nil {
		s.LogLevel = *file.Log.Level
	}
	if file.Log.Format != nil {
		s.LogFormat = *file.Log.Format
	}
	s.Players = dedupeIDs(file.Players.IDs)

	s.APIKey = strings.TrimSpace(e.APIKey)
	overrideString(&s.BaseURL, e.BaseURL)
	overrideString(&s.DataDir, e.DataDir)
	overrideString(&s.DBPath, e.DBPath)
	overrideString(&s.LogLevel, e.LogLevel)
	overrideString(&s.LogFormat, e.LogFormat)
	s.BaseURL = strings.TrimSuffix(s.BaseURL, "/")
	s.LogLevel = strings.ToLower(s.LogLevel)
	s.LogFormat = strings.ToLower(s.LogFormat)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks field constraints.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when no credential is configured.
func (s Settings) RequireAPIKey() error {
	if s.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func overrideString(target *string, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	*target = value
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
