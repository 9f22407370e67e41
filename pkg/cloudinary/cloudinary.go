// Package cloudinary archives generated export files in Cloudinary.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// DefaultFolder is used when no folder is configured.
const DefaultFolder = "class-exports"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports whether all credentials are present.
func (c Config) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Archiver uploads export files as raw Cloudinary assets.
type Archiver struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an archiver.
func New(cfg Config, logger zerolog.Logger) (*Archiver, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}

	return &Archiver{
		client: cld,
		folder: folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload stores the file and returns its secure URL. Each upload gets a timestamped public id
// so earlier exports are never overwritten.
func (a *Archiver) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	publicID := PublicID(name, a.now())

	result, err := a.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:       a.folder,
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	a.logger.Info().Str("public_id", result.PublicID).Msg("export archived")
	return result.SecureURL, nil
}

// PublicID derives a URL-safe asset id from a file name, keeping its extension.
// Raw assets are served by public id, so the extension must be part of it.
func PublicID(name string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))

	base = strings.Trim(base, "-")
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s-%s%s", base, at.UTC().Format("20060102T150405"), ext)
}
