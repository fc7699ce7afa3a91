package pipeline

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgallion1/docfill/internal/docxfile"
)

// ManifestName is the per-record summary stored alongside zipped documents.
const ManifestName = "manifest.json"

// writeZip bundles files under their base names plus a manifest of every
// record outcome, writing the archive atomically to out.
func writeZip(out string, files []string, results []RecordResult) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".docfill-*.zip")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	zw := zip.NewWriter(tmp)
	for _, f := range files {
		if err := addZipFile(zw, f); err != nil {
			zw.Close()
			tmp.Close()
			return err
		}
	}

	manifest := make([]RecordResult, len(results))
	for i, r := range results {
		r.Docx = filepath.Base(r.Docx)
		r.PDF = filepath.Base(r.PDF)
		if r.Docx == "." {
			r.Docx = ""
		}
		if r.PDF == "." {
			r.PDF = ""
		}
		manifest[i] = r
	}
	w, err := zw.Create(ManifestName)
	if err == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(manifest)
	}
	if err != nil {
		zw.Close()
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, out)
}

func addZipFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.Base(path), Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("zip %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CopyResults copies the produced per-record files into dst, which is
// created if needed, and returns the destination paths.
func CopyResults(results []RecordResult, pdf bool, dst string) ([]string, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}
	var out []string
	for _, r := range results {
		src := r.Docx
		if pdf {
			src = r.PDF
		}
		if r.Error != "" || src == "" {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return out, err
		}
		target := filepath.Join(dst, filepath.Base(src))
		if err := docxfile.WriteFileAtomic(target, data); err != nil {
			return out, err
		}
		out = append(out, target)
	}
	return out, nil
}
