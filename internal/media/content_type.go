package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// Common MIME types for various file extensions
var commonMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".dng":  "image/x-adobe-dng",
}

// DetectContentType determines the content type of a file based on its extension
func DetectContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	if mimeType, ok := commonMimeTypes[ext]; ok {
		return mimeType
	}

	// Fall back to the standard library
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}

	return "application/octet-stream"
}

// IsImageFile checks if a file is an image based on its extension
func IsImageFile(filename string) bool {
	_, ok := commonMimeTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// IsZipFile checks for a zip archive extension
func IsZipFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".zip")
}
