package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docfill/internal/docxfile/docxtest"
	"github.com/fumiama/go-docx"
)

// run executes args against a fresh command tree writing to out. Logs are
// discarded.
func run(ctx context.Context, out io.Writer, args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(io.Discard)
	return root.ExecuteContext(ctx)
}

func writeFixtures(t *testing.T) (tpl, data string) {
	t.Helper()
	t.Setenv("DOCFILL_CONFIG", "")
	dir := t.TempDir()
	tpl = docxtest.Write(t, dir, "Letter_compact.docx", func(f *docx.Docx) {
		docxtest.Runs(f, "Dear {Name},")
		docxtest.Runs(f, "{Address 2}")
		docxtest.Runs(f, "Your code is {Code}.")
	})
	data = filepath.Join(dir, "rows.csv")
	if err := os.WriteFile(data, []byte("Name,Address 2,Code\nAnn Lee,,A1\nBob,12 Road,B2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return tpl, data
}

func TestInspectCommand(t *testing.T) {
	tpl, _ := writeFixtures(t)

	var out bytes.Buffer
	if err := run(context.Background(), &out, "inspect", tpl); err != nil {
		t.Fatalf("inspect: %v\n%s", err, out.String())
	}
	text := out.String()
	for _, want := range []string{"NAME", "Address 2", "Code", "compact variant"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestInspectCommandJSON(t *testing.T) {
	tpl, _ := writeFixtures(t)

	var out bytes.Buffer
	if err := run(context.Background(), &out, "inspect", "--json", tpl); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var got []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(got) != 3 {
		t.Fatalf("placeholders = %+v, want 3", got)
	}
}

func TestInspectCommandRequiresArg(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, "inspect"); err == nil {
		t.Fatal("expected error without a template argument")
	}
}

func TestFillCommand(t *testing.T) {
	tpl, data := writeFixtures(t)
	outDir := filepath.Join(t.TempDir(), "letters")

	var out bytes.Buffer
	err := run(context.Background(), &out, "fill", "--template", tpl, "--data", data, "--out", outDir, "--zip")
	if err != nil {
		t.Fatalf("fill: %v\n%s", err, out.String())
	}

	for _, name := range []string{"Ann Lee_1.docx", "Bob_2.docx", "documents.zip"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "completed: 3 files written") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
}

func TestFillCommandJSON(t *testing.T) {
	tpl, data := writeFixtures(t)
	outDir := t.TempDir()

	var out bytes.Buffer
	if err := run(context.Background(), &out, "fill", "-t", tpl, "-d", data, "-o", outDir, "--json"); err != nil {
		t.Fatalf("fill: %v\n%s", err, out.String())
	}
	// The summary line follows the JSON array.
	dec := json.NewDecoder(&out)
	var lines []recordLine
	if err := dec.Decode(&lines); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d records, want 2", len(lines))
	}
	if lines[0].Output != "Ann Lee_1.docx" || lines[0].Error != "" {
		t.Errorf("first record = %+v", lines[0])
	}
	if lines[0].Replacements == 0 {
		t.Errorf("first record reported no replacements")
	}
}

func TestFillCommandFlags(t *testing.T) {
	tpl, data := writeFixtures(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing template", []string{"fill", "--data", data, "--out", t.TempDir()}},
		{"missing data file", []string{"fill", "--template", tpl, "--data", data + ".missing", "--out", t.TempDir()}},
		{"compact conflict", []string{"fill", "--template", tpl, "--data", data, "--out", t.TempDir(), "--compact", "--no-compact"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), &out, tt.args...); err == nil {
				t.Fatalf("expected error, output:\n%s", out.String())
			}
		})
	}
}

func TestScaffoldCommand(t *testing.T) {
	_, data := writeFixtures(t)
	out := filepath.Join(t.TempDir(), "Starter.docx")

	var buf bytes.Buffer
	if err := run(context.Background(), &buf, "scaffold", "--data", data, "--out", out); err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	buf.Reset()
	if err := run(context.Background(), &buf, "inspect", "--json", out); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var got []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(got) != 3 || got[0].Name != "Name" || got[2].Name != "Code" {
		t.Errorf("placeholders = %+v", got)
	}
}
