package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for the service-day window
	// (e.g. "Europe/Paris").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string driving the feed
	// refresh pass (default hourly).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FeedURL is the planning-feed URL template. It receives the numeric
	// resource identifier and the first/last dates of the ingest window
	// (YYYY-MM-DD), in that order.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// Resources is the list of external resource identifiers to poll.
	// One identifier may surface several named rooms.
	Resources []int `yaml:"resources" json:"resources"`

	// RoomPattern filters which room names are exposed by the API.
	RoomPattern string `yaml:"room_pattern" json:"room_pattern"`

	// PastWeeks / FutureWeeks bound the sliding ingest window around the
	// current date.
	PastWeeks   int `yaml:"past_weeks" json:"past_weeks"`
	FutureWeeks int `yaml:"future_weeks" json:"future_weeks"`

	// FetchTimeoutSeconds bounds each external feed fetch.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// CacheDir is where fetched feed bodies and their HTTP cache metadata
	// are stored for stale-fallback.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// defaultResources is the resource catalog of the campus planning server.
var defaultResources = []int{
	726, 1508, 730, 1649, 731, 1680, 706, 1698, 733, 1715,
	707, 5805, 3400, 3403, 3404, 7957, 7958, 4816, 7834, 7835,
	4501, 4722, 4624, 3395, 4727, 1037, 1981, 3584, 1884, 3586,
	1803, 3582, 1274, 3587, 3402, 1290, 2016, 3513, 3543, 3542,
	3538, 3535, 3532, 3530, 3527, 3525, 3487, 3486, 3484, 3483,
	3479, 3478, 4294, 4296, 6345, 6927, 6932, 6974, 5252, 4226,
	3508, 3510, 5877, 3577, 3997, 4209, 1849, 1359, 6791, 6800,
	1890, 6787, 6789, 2876, 3467, 3466, 3464, 3463, 3461, 3460,
	3458, 3457, 3453, 3454, 3450, 3451, 3447, 3448, 1299, 1189,
	3492, 3493, 3438, 3436, 3433, 3431, 3429, 3428, 3426, 3425,
	3387, 3585, 3580, 71, 2883, 2902, 2808, 2811, 2814, 2836,
	3421, 3420, 3412, 3411, 3415, 3414, 3418, 3417,
}

const defaultFeedURL = "https://planning.univ-ubs.fr/jsp/custom/modules/plannings/anonymous_cal.jsp?resources=%d&projectId=1&calType=ical&firstDate=%s&lastDate=%s"

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              "127.0.0.1:8080",
		Timezone:            "Europe/Paris",
		RefreshCron:         "0 * * * *",
		FeedURL:             defaultFeedURL,
		Resources:           append([]int(nil), defaultResources...),
		RoomPattern:         `^\bV-[AB]\s?\d*?\b$`,
		PastWeeks:           2,
		FutureWeeks:         8,
		FetchTimeoutSeconds: 10,
		CacheDir:            "./var/feed-cache",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.FeedURL == "" {
		c.FeedURL = def.FeedURL
	}
	if c.Resources == nil {
		c.Resources = def.Resources
	}
	if c.RoomPattern == "" {
		c.RoomPattern = def.RoomPattern
	}
	if c.PastWeeks <= 0 {
		c.PastWeeks = def.PastWeeks
	}
	if c.FutureWeeks <= 0 {
		c.FutureWeeks = def.FutureWeeks
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = def.FetchTimeoutSeconds
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent directory created) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".free-room-api-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
