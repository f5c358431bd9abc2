package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// Extension returns the lowercased extension of a client-supplied filename,
// or "" when it is missing or implausible.
func Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

// ContentDisposition builds an attachment header for name. Non-ASCII names
// are encoded per RFC 2231 by the mime package.
func ContentDisposition(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
