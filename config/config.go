// Package config holds the numeric bounds and process settings for autoppt.
//
// Limits are plain values passed into every component constructor; nothing
// in this module reads configuration from globals. Settings come from a
// single YAML file (LoadFile, or Load via AUTOPPT_CONFIG) with environment
// overrides applied last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const bytesPerMB = 1024 * 1024

// Limits bounds every stage of outline compilation and template handling.
type Limits struct {
	MaxTextChars       int `yaml:"max_text_chars" json:"max_text_chars"`
	MaxTotalSlides     int `yaml:"max_total_slides" json:"max_total_slides"`
	MaxBulletsPerSlide int `yaml:"max_bullets_per_slide" json:"max_bullets_per_slide"`
	MaxTitleChars      int `yaml:"max_title_chars" json:"max_title_chars"`
	MaxBulletChars     int `yaml:"max_bullet_chars" json:"max_bullet_chars"`
	MaxNotesChars      int `yaml:"max_notes_chars" json:"max_notes_chars"`

	MaxFileMB          int `yaml:"max_file_mb" json:"max_file_mb"`                     // upload size cap
	MaxZipEntries      int `yaml:"max_zip_entries" json:"max_zip_entries"`             // central directory entries
	MaxZipMemberMB     int `yaml:"max_zip_member_mb" json:"max_zip_member_mb"`         // declared uncompressed size per entry
	MaxTemplateImages  int `yaml:"max_template_images" json:"max_template_images"`     // media items kept from a template
	MaxTemplateImageMB int `yaml:"max_template_image_mb" json:"max_template_image_mb"` // per media item
}

// DefaultLimits returns the stock bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxTextChars:       40000,
		MaxTotalSlides:     60,
		MaxBulletsPerSlide: 7,
		MaxTitleChars:      200,
		MaxBulletChars:     200,
		MaxNotesChars:      600,
		MaxFileMB:          20,
		MaxZipEntries:      2000,
		MaxZipMemberMB:     50,
		MaxTemplateImages:  20,
		MaxTemplateImageMB: 5,
	}
}

// MemberLimitBytes is the largest declared uncompressed size of one entry.
func (l Limits) MemberLimitBytes() uint64 {
	return uint64(l.MaxZipMemberMB) * bytesPerMB
}

// TotalLimitBytes is the ceiling on the sum of declared uncompressed sizes.
// It is derived from the member limit: four maximal members.
func (l Limits) TotalLimitBytes() uint64 {
	return 4 * l.MemberLimitBytes()
}

// ImageLimitBytes is the largest template image the assembler will load.
func (l Limits) ImageLimitBytes() uint64 {
	return uint64(l.MaxTemplateImageMB) * bytesPerMB
}

// FileLimitBytes is the largest accepted template upload.
func (l Limits) FileLimitBytes() int64 {
	return int64(l.MaxFileMB) * bytesPerMB
}

// Validate checks that every bound is usable.
func (l Limits) Validate() error {
	checks := []struct {
		name  string
		value int
		min   int
	}{
		{"max_text_chars", l.MaxTextChars, 1},
		{"max_total_slides", l.MaxTotalSlides, 1},
		{"max_bullets_per_slide", l.MaxBulletsPerSlide, 1},
		{"max_title_chars", l.MaxTitleChars, 8},
		{"max_bullet_chars", l.MaxBulletChars, 8},
		{"max_notes_chars", l.MaxNotesChars, 8},
		{"max_file_mb", l.MaxFileMB, 1},
		{"max_zip_entries", l.MaxZipEntries, 4},
		{"max_zip_member_mb", l.MaxZipMemberMB, 1},
		{"max_template_images", l.MaxTemplateImages, 0},
		{"max_template_image_mb", l.MaxTemplateImageMB, 1},
	}
	for _, c := range checks {
		if c.value < c.min {
			return fmt.Errorf("%s must be >= %d, got %d", c.name, c.min, c.value)
		}
	}
	return nil
}

// LLMConfig configures the optional OpenAI-compatible planner.
// The API key is never read from the file; callers supply it per request.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// Config is the process configuration.
type Config struct {
	ServerAddr        string   `yaml:"server_addr,omitempty"`
	AllowedExtensions []string `yaml:"allowed_extensions,omitempty"`
	// RateLimitPerMinute caps API requests per client IP; 0 disables it.
	RateLimitPerMinute int       `yaml:"rate_limit_per_minute"`
	LLM                LLMConfig `yaml:"llm"`
	Limits             Limits    `yaml:"limits"`
}

// Default returns a Config with stock settings.
func Default() Config {
	return Config{
		ServerAddr:         ":8080",
		AllowedExtensions:  []string{".pptx", ".potx"},
		RateLimitPerMinute: 30,
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4.1-mini",
			BaseURL:  "https://aipipe.org/openai/v1",
		},
		Limits: DefaultLimits(),
	}
}

// Load reads the file named by AUTOPPT_CONFIG, or returns defaults with
// environment overrides when the variable is unset.
func Load() (Config, error) {
	path := os.Getenv("AUTOPPT_CONFIG")
	if path == "" {
		return Parse(nil)
	}
	return LoadFile(path)
}

// LoadFile reads a YAML config. Fields absent from the file keep their
// defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes over Default and applies env overrides.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.AllowedExtensions) == 0 {
		return Config{}, errors.New("allowed_extensions must not be empty")
	}
	for i, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.AllowedExtensions[i] = ext
	}
	if cfg.RateLimitPerMinute < 0 {
		return Config{}, fmt.Errorf("rate_limit_per_minute must be >= 0, got %d", cfg.RateLimitPerMinute)
	}
	if err := cfg.Limits.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AllowsExtension reports whether ext (with leading dot) is accepted.
func (c Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func applyEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_TEXT_CHARS", &cfg.Limits.MaxTextChars},
		{"MAX_TOTAL_SLIDES", &cfg.Limits.MaxTotalSlides},
		{"MAX_BULLETS_PER_SLIDE", &cfg.Limits.MaxBulletsPerSlide},
		{"MAX_TITLE_CHARS", &cfg.Limits.MaxTitleChars},
		{"MAX_BULLET_CHARS", &cfg.Limits.MaxBulletChars},
		{"MAX_NOTES_CHARS", &cfg.Limits.MaxNotesChars},
		{"MAX_FILE_MB", &cfg.Limits.MaxFileMB},
		{"MAX_ZIP_ENTRIES", &cfg.Limits.MaxZipEntries},
		{"MAX_ZIP_MEMBER_MB", &cfg.Limits.MaxZipMemberMB},
		{"MAX_TEMPLATE_IMAGES", &cfg.Limits.MaxTemplateImages},
		{"MAX_TEMPLATE_IMAGE_MB", &cfg.Limits.MaxTemplateImageMB},
		{"RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute},
	}
	for _, e := range ints {
		raw, ok := os.LookupEnv(e.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("env %s: %w", e.key, err)
		}
		*e.dst = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.ServerAddr = v
	}
	return nil
}
