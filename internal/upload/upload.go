package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrTooLarge        = errors.New("image exceeds the upload size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrEmpty           = errors.New("image is empty")
)

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// Image is an uploaded photo that passed validation.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
	Exif        Exif
}

// ReadImage reads and validates a multipart photo, keeping at most maxBytes.
func ReadImage(fh *multipart.FileHeader, maxBytes int64) (*Image, error) {
	if fh.Size > maxBytes {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return NewImage(fh.Filename, data)
}

// NewImage validates raw bytes against the extension and sniffed content type whitelists.
func NewImage(filename string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	contentType, err := Validate(filename, data)
	if err != nil {
		return nil, err
	}
	return &Image{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		Exif:        ReadExif(data),
	}, nil
}

// Validate returns the sniffed content type. The declared extension alone is never trusted.
func Validate(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedType, ext)
	}
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowedContentTypes[contentType] {
		return "", fmt.Errorf("%w: content %q", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}
