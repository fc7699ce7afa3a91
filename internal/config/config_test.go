package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCFILL_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FillWorkers != 4 || cfg.WorkerCount != 2 {
		t.Errorf("workers = %d/%d", cfg.FillWorkers, cfg.WorkerCount)
	}
	if cfg.ConvertTimeout != 60*time.Second || cfg.RecordTimeout != 30*time.Second {
		t.Errorf("timeouts = %s/%s", cfg.ConvertTimeout, cfg.RecordTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOCFILL_CONFIG", "")
	t.Setenv("FILL_WORKERS", "8")
	t.Setenv("CONVERT_PDF", "true")
	t.Setenv("CONVERT_TIMEOUT", "2m")
	t.Setenv("COMPACT_PATTERNS", " *short* , ,*mini*")
	t.Setenv("WORKER_COUNT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FillWorkers != 8 {
		t.Errorf("FillWorkers = %d", cfg.FillWorkers)
	}
	if !cfg.ConvertPDF || cfg.ConvertTimeout != 2*time.Minute {
		t.Errorf("pdf settings = %v/%s", cfg.ConvertPDF, cfg.ConvertTimeout)
	}
	if strings.Join(cfg.CompactPatterns, "|") != "*short*|*mini*" {
		t.Errorf("CompactPatterns = %q", cfg.CompactPatterns)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("bad int should keep default, got %d", cfg.WorkerCount)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docfill.yaml")
	yml := "port: \"9000\"\nfill_workers: 6\njob_ttl: 10m\noutput_name_field: Full Name\ncompact_patterns: [\"*c*\"]\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCFILL_CONFIG", path)
	t.Setenv("FILL_WORKERS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.JobTTL != 10*time.Minute || cfg.OutputNameField != "Full Name" {
		t.Errorf("yaml not applied: %+v", cfg)
	}
	if cfg.FillWorkers != 3 {
		t.Errorf("env should override yaml, FillWorkers = %d", cfg.FillWorkers)
	}
	if cfg.ConvertWorkers != 4 {
		t.Errorf("unset key lost its default, ConvertWorkers = %d", cfg.ConvertWorkers)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("fill_workers: [oops"), 0o644)
	t.Setenv("DOCFILL_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}

	t.Setenv("DOCFILL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected read error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.FillWorkers = 0
	cfg.Port = "http"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"FillWorkers", "Port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	cfg = Defaults()
	cfg.CompactPatterns = []string{"*c*", ""}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for blank pattern")
	}
}

func TestIsCompactTemplate(t *testing.T) {
	cfg := Defaults()
	tests := map[string]bool{
		"Offer_Compact.docx":        true,
		"/tmp/x/letter-ALT.docx":    true,
		"letter.docx":               false,
		"compactness/letter.docx":   false,
		"appointment alt v2.docx":   true,
		"Appointment_Standard.docx": false,
	}
	for name, want := range tests {
		if got := cfg.IsCompactTemplate(name); got != want {
			t.Errorf("IsCompactTemplate(%q) = %v, want %v", name, got, want)
		}
	}
}
