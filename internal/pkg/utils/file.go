package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

//SupportTranscriptExt checks if transcript file ext is supported
func SupportTranscriptExt(ext string) bool {
	return ext == ".txt" || ext == ".text" || ext == ".md" || ext == ".srt" || ext == ".vtt"
}

// MakeFileName joins ID and file name into the storage path
func MakeFileName(id, name string) string {
	return id + "/" + name
}

// MakeValidateFileName returns the storage path or fails on a suspicious name
func MakeValidateFileName(id, name string) (string, error) {
	base := filepath.Base(name)
	if base == "" || base == "." || base == ".." || strings.ContainsAny(base, "\\:*?\"<>|") {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	if id == "" {
		return base, nil
	}
	return MakeFileName(id, base), nil
}
