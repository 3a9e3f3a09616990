package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// EnsureUploadDir creates the local uploads directory if it doesn't exist.
// Used only when R2 document storage is not configured.
func EnsureUploadDir() error {
	return os.MkdirAll("uploads", os.ModePerm)
}

// SaveFile saves the uploaded file to the given destination path
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}

// SaveBytes writes raw bytes (e.g., a bulk-upload zip entry) to destPath.
func SaveBytes(data []byte, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

// GetUploadPath returns the full path for a file inside the uploads directory
func GetUploadPath(filename string) string {
	return filepath.Join("uploads", filename)
}
