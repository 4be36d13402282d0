// Package imageio decodes and encodes satellite tiles and renders debug
// overlays.
package imageio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Config holds loader settings
type Config struct {
	HTTPTimeout  time.Duration
	UserAgent    string
	MinImageSize int
	// MaxDownloadBytes caps remote image bodies; 0 means no limit
	MaxDownloadBytes int64
}

// DefaultConfig returns the default loader settings
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:      30 * time.Second,
		UserAgent:        "aqua-chroma/1.0 (+https://github.com/menta2k/aqua-chroma)",
		MinImageSize:     1,
		MaxDownloadBytes: 64 << 20,
	}
}

// Loader reads images from disk or HTTP and writes them back out
type Loader struct {
	config Config
	client *http.Client
}

// NewLoader creates a loader with default settings
func NewLoader() *Loader {
	return NewLoaderWithConfig(DefaultConfig())
}

// NewLoaderWithConfig creates a loader with custom settings
func NewLoaderWithConfig(config Config) *Loader {
	return &Loader{
		config: config,
		client: &http.Client{Timeout: config.HTTPTimeout},
	}
}

// LoadImageFromURL downloads and decodes an image
func (l *Loader) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.config.UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	var body io.Reader = resp.Body
	if l.config.MaxDownloadBytes > 0 {
		body = io.LimitReader(resp.Body, l.config.MaxDownloadBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if l.config.MaxDownloadBytes > 0 && int64(len(data)) > l.config.MaxDownloadBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.config.MaxDownloadBytes)
	}

	return l.LoadImageFromReader(bytes.NewReader(data))
}

// LoadImage loads an image from a file path with WebP support
func (l *Loader) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageSmart loads an image from either a file path or URL
func (l *Loader) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.LoadImageFromURL(ctx, source)
	}
	return l.LoadImage(source)
}

// LoadImageFromReader decodes any registered format, falling back to WebP
func (l *Loader) LoadImageFromReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// SaveImage saves an image to a file with the specified format and quality
func (l *Loader) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	return SaveImage(img, path, format, quality, lossless)
}

// SaveImage encodes img to path. Format is png, jpg/jpeg or webp.
func SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return f.Close()
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Extension returns the file extension used for a format
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "jpg"
	case "webp":
		return "webp"
	default:
		return "png"
	}
}
