package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	StorageFS     = "fs"
	StorageMemory = "memory"
)

// Metadata backends.
const (
	MetadataSQLite = "sqlite"
	MetadataBadger = "badger"
	MetadataRedis  = "redis"
	MetadataMemory = "memory"
)

// Settings holds all configuration options.
type Settings struct {
	// Object storage settings
	StorageBackend   string `json:"storage_backend" toml:"storage_backend"` // fs, memory
	StorageDir       string `json:"storage_dir" toml:"storage_dir"`
	StorageBaseURL   string `json:"storage_base_url" toml:"storage_base_url"`
	UploadChunkBytes int    `json:"upload_chunk_bytes" toml:"upload_chunk_bytes"`

	// Metadata settings
	MetadataBackend    string `json:"metadata_backend" toml:"metadata_backend"` // sqlite, badger, redis, memory
	MetadataPath       string `json:"metadata_path" toml:"metadata_path"`
	RedisAddr          string `json:"redis_addr" toml:"redis_addr"`
	RedisPassword      string `json:"redis_password" toml:"redis_password"`
	RedisDB            int    `json:"redis_db" toml:"redis_db"`
	ResolveConcurrency int    `json:"resolve_concurrency" toml:"resolve_concurrency"`

	// Capture settings
	FFmpegPath       string `json:"ffmpeg_path" toml:"ffmpeg_path"`
	CaptureDisplay   string `json:"capture_display" toml:"capture_display"`
	CaptureAudio     string `json:"capture_audio" toml:"capture_audio"`
	CaptureFrameRate int    `json:"capture_frame_rate" toml:"capture_frame_rate"`
	CaptureChunkSize int    `json:"capture_chunk_size" toml:"capture_chunk_size"`

	// Thumbnail settings
	Thumbnails       bool `json:"thumbnails" toml:"thumbnails"`
	ThumbnailMaxSize int  `json:"thumbnail_max_size" toml:"thumbnail_max_size"`

	// Service settings
	LogLevel   string `json:"log_level" toml:"log_level"`
	ListenAddr string `json:"listen_addr" toml:"listen_addr"`
	LockPath   string `json:"lock_path" toml:"lock_path"` // empty disables the recorder lock
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	dataDir := DefaultDataDir()
	return &Settings{
		StorageBackend:   StorageFS,
		StorageDir:       filepath.Join(dataDir, "objects"),
		UploadChunkBytes: 256 * 1024,

		MetadataBackend:    MetadataSQLite,
		MetadataPath:       filepath.Join(dataDir, "metadata.db"),
		RedisAddr:          "localhost:6379",
		ResolveConcurrency: 4,

		FFmpegPath:       "ffmpeg",
		CaptureFrameRate: 30,
		CaptureChunkSize: 64 * 1024,

		Thumbnails:       true,
		ThumbnailMaxSize: 320,

		LogLevel:   "info",
		ListenAddr: "127.0.0.1:8477",
		LockPath:   filepath.Join(dataDir, "screenrec.lock"),
	}
}

// DefaultDataDir is where recordings and metadata live unless configured.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenrec")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "screenrec")
	}
	return filepath.Join(".", "screenrec-data")
}

// DefaultConfigPath is the settings file read when no path is given.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenrec", "config.json")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "screenrec", "config.json")
	}
	return "config.json"
}

// Load reads settings from a JSON or TOML file (chosen by extension) and
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, settings); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	settings.ApplyEnv(os.LookupEnv)
	return settings, nil
}

func decode(path string, data []byte, settings *Settings) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, settings)
	}
	return json.Unmarshal(data, settings)
}

// Save writes settings to a JSON or TOML file (chosen by extension).
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return renameio.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings from SCREENREC_* environment variables.
// lookup is os.LookupEnv outside of tests.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("SCREENREC_STORAGE_BACKEND", &s.StorageBackend)
	str("SCREENREC_STORAGE_DIR", &s.StorageDir)
	str("SCREENREC_STORAGE_BASE_URL", &s.StorageBaseURL)
	str("SCREENREC_METADATA_BACKEND", &s.MetadataBackend)
	str("SCREENREC_METADATA_PATH", &s.MetadataPath)
	str("SCREENREC_REDIS_ADDR", &s.RedisAddr)
	str("SCREENREC_REDIS_PASSWORD", &s.RedisPassword)
	num("SCREENREC_REDIS_DB", &s.RedisDB)
	num("SCREENREC_RESOLVE_CONCURRENCY", &s.ResolveConcurrency)
	str("SCREENREC_FFMPEG", &s.FFmpegPath)
	str("SCREENREC_DISPLAY", &s.CaptureDisplay)
	str("SCREENREC_AUDIO", &s.CaptureAudio)
	str("SCREENREC_LOG_LEVEL", &s.LogLevel)
	str("SCREENREC_LISTEN_ADDR", &s.ListenAddr)
	str("SCREENREC_LOCK_PATH", &s.LockPath)
}

// Validate reports the first setting that cannot work.
func (s *Settings) Validate() error {
	switch s.StorageBackend {
	case StorageFS:
		if s.StorageDir == "" {
			return fmt.Errorf("storage_dir is required for the %q backend", StorageFS)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage_backend %q", s.StorageBackend)
	}

	switch s.MetadataBackend {
	case MetadataSQLite, MetadataBadger:
		if s.MetadataPath == "" {
			return fmt.Errorf("metadata_path is required for the %q backend", s.MetadataBackend)
		}
	case MetadataRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the %q backend", MetadataRedis)
		}
	case MetadataMemory:
	default:
		return fmt.Errorf("unknown metadata_backend %q", s.MetadataBackend)
	}

	if s.UploadChunkBytes <= 0 {
		return fmt.Errorf("upload_chunk_bytes must be positive, got %d", s.UploadChunkBytes)
	}
	if s.ResolveConcurrency <= 0 {
		return fmt.Errorf("resolve_concurrency must be positive, got %d", s.ResolveConcurrency)
	}
	if s.CaptureChunkSize <= 0 {
		return fmt.Errorf("capture_chunk_size must be positive, got %d", s.CaptureChunkSize)
	}
	return nil
}
