package repo

import (
	"fmt"
	"path/filepath"
	"strings"
)

var uploadExtensions = map[string]bool{".txt": true, ".json": true}

// UnsupportedFileError rejects an upload whose extension is not .txt or .json.
type UnsupportedFileError struct {
	Path string
	Ext  string
}

func (e UnsupportedFileError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported file %s: no extension (expected .txt or .json)", e.Path)
	}
	return fmt.Sprintf("unsupported file type %q: %s (expected .txt or .json)", e.Ext, e.Path)
}

// CheckUploadPath accepts .txt and .json files (any case). Call it before
// reading the file.
func CheckUploadPath(path string) error {
	ext := filepath.Ext(path)
	if !uploadExtensions[strings.ToLower(ext)] {
		return UnsupportedFileError{Path: path, Ext: ext}
	}
	return nil
}

// UploadTitle is the conversation title for an uploaded file: its base name.
func UploadTitle(path string) string {
	return filepath.Base(path)
}
