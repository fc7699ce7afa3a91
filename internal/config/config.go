package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port" validate:"required,numeric"`

	// Auth, enabled when set.
	APIKey string `yaml:"api_key"`

	// Scratch space for uploads and job output.
	WorkDir string `yaml:"work_dir" validate:"required"`

	// Worker pools
	WorkerCount    int `yaml:"worker_count" validate:"min=1"`
	FillWorkers    int `yaml:"fill_workers" validate:"min=1,max=64"`
	ConvertWorkers int `yaml:"convert_workers" validate:"min=1,max=64"`
	MaxQueueSize   int `yaml:"max_queue_size" validate:"min=1"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes" validate:"gt=0"`
	MaxRecords     int   `yaml:"max_records" validate:"min=1"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl" validate:"gt=0"`

	// PDF conversion
	ConvertPDF           bool          `yaml:"convert_pdf"`
	SofficePath          string        `yaml:"soffice_path" validate:"required"`
	ConvertTimeout       time.Duration `yaml:"convert_timeout" validate:"gt=0"`
	PDFFallbackPdftotext bool          `yaml:"pdf_fallback_pdftotext"`

	// Fill behaviour
	RecordTimeout      time.Duration `yaml:"record_timeout" validate:"gt=0"`
	StrictKeys         bool          `yaml:"strict_keys"`
	CompactPatterns    []string      `yaml:"compact_patterns" validate:"dive,required"`
	OutputNameField    string        `yaml:"output_name_field" validate:"required"`
	AbortOnRecordError bool          `yaml:"abort_on_record_error"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		WorkDir:              filepath.Join(os.TempDir(), "docfill"),
		WorkerCount:          2,
		FillWorkers:          4,
		ConvertWorkers:       4,
		MaxQueueSize:         100,
		MaxUploadBytes:       52428800, // 50MB
		MaxRecords:           5000,
		JobTTL:               1 * time.Hour,
		SofficePath:          "soffice",
		ConvertTimeout:       60 * time.Second,
		PDFFallbackPdftotext: true,
		RecordTimeout:        30 * time.Second,
		CompactPatterns:      []string{"*compact*", "*alt*"},
		OutputNameField:      "Name",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// DOCFILL_CONFIG if any, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DOCFILL_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCFILL_API_KEY", cfg.APIKey)
	cfg.WorkDir = envOr("WORK_DIR", cfg.WorkDir)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.FillWorkers = envInt("FILL_WORKERS", cfg.FillWorkers)
	cfg.ConvertWorkers = envInt("CONVERT_WORKERS", cfg.ConvertWorkers)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxRecords = envInt("MAX_RECORDS", cfg.MaxRecords)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.ConvertPDF = envBool("CONVERT_PDF", cfg.ConvertPDF)
	cfg.SofficePath = envOr("SOFFICE_PATH", cfg.SofficePath)
	cfg.ConvertTimeout = envDuration("CONVERT_TIMEOUT", cfg.ConvertTimeout)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.RecordTimeout = envDuration("RECORD_TIMEOUT", cfg.RecordTimeout)
	cfg.StrictKeys = envBool("STRICT_KEYS", cfg.StrictKeys)
	cfg.CompactPatterns = envList("COMPACT_PATTERNS", cfg.CompactPatterns)
	cfg.OutputNameField = envOr("OUTPUT_NAME_FIELD", cfg.OutputNameField)
	cfg.AbortOnRecordError = envBool("ABORT_ON_RECORD_ERROR", cfg.AbortOnRecordError)

	return cfg, nil
}

func (c Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// IsCompactTemplate reports whether a template file name selects the compact
// variant under the configured patterns.
func (c Config) IsCompactTemplate(filename string) bool {
	base := strings.ToLower(filepath.Base(filename))
	for _, pat := range c.CompactPatterns {
		if ok, err := filepath.Match(strings.ToLower(pat), base); err == nil && ok {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
