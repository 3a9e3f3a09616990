// utils/unzip.go
package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ZipEntry is one regular file extracted from an uploaded archive.
type ZipEntry struct {
	Name string // base file name, directories flattened
	Data []byte
}

// ExtractZip reads every regular file out of a zip archive in memory,
// for bulk document uploads. Entries with path-traversal names are
// rejected outright.
func ExtractZip(src string) ([]ZipEntry, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []ZipEntry
	for _, f := range r.File {
		if strings.Contains(f.Name, "..") {
			return nil, fmt.Errorf("illegal file path: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		// Skip macOS metadata noise
		if strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(filepath.Base(f.Name), ".") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}

		entries = append(entries, ZipEntry{Name: filepath.Base(f.Name), Data: data})
	}

	return entries, nil
}
