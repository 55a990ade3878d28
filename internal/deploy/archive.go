package deploy

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// BuildArchive zips every regular file under srcDir into an in-memory
// deployment archive, with paths relative to srcDir.
func BuildArchive(srcDir string) ([]byte, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("function source directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("function source path %s is not a directory", srcDir)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := 0
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err = io.Copy(w, f); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to build deployment archive: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize deployment archive: %w", err)
	}
	if files == 0 {
		return nil, fmt.Errorf("no files found under %s", srcDir)
	}
	return buf.Bytes(), nil
}
