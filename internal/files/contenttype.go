package files

import (
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".txt":  "text/plain",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".ico":  "image/x-icon",
	".png":  "image/png",
	".otf":  "font/otf",
	".ttf":  "font/ttf",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
}

// ContentType never fails; unknown extensions get application/octet-stream.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return defaultContentType
}
