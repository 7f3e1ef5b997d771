// Package imagegen turns a prompt and an optional reference image into a
// hosted image asset.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/storage"
)

// ErrNoImage is returned when the provider answered without image data.
var ErrNoImage = errors.New("provider returned no image")

// ReferenceImage is an inline image that guides generation.
type ReferenceImage struct {
	Base64   string
	MimeType string
}

// Request is a single generation call.
type Request struct {
	Prompt         string
	ReferenceImage *ReferenceImage
	StorageFolder  string
}

// Result describes the stored asset.
type Result struct {
	URL                string
	SecureURL          string
	PublicID           string
	TextResponse       *string
	UsedReferenceImage bool
}

// Output is what a provider returns before the bytes are stored.
type Output struct {
	Data               []byte
	MimeType           string
	Text               string
	UsedReferenceImage bool
}

// Provider produces image bytes from a prompt.
type Provider interface {
	GenerateImage(ctx context.Context, prompt string, ref *ReferenceImage) (*Output, error)
	Model() string
}

// Generator produces a stored image for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Model() string
}

// Service composes a Provider with an AssetStore.
type Service struct {
	provider Provider
	store    storage.AssetStore
	logger   *zap.Logger
}

var _ Generator = (*Service)(nil)

// NewService creates a generator that uploads provider output to store.
func NewService(provider Provider, store storage.AssetStore, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		store:    store,
		logger:   logger.Named("imagegen"),
	}
}

// Model returns the provider's model identifier.
func (s *Service) Model() string {
	return s.provider.Model()
}

// Generate calls the provider and uploads the result. A failure in either
// step fails the whole call.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	out, err := s.provider.GenerateImage(ctx, req.Prompt, req.ReferenceImage)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, ErrNoImage
	}

	asset, err := s.store.Upload(ctx, req.StorageFolder, out.Data, out.MimeType)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	s.logger.Info("Image generated",
		zap.String("model", s.provider.Model()),
		zap.String("public_id", asset.PublicID),
		zap.Bool("used_reference_image", out.UsedReferenceImage),
		zap.Duration("elapsed", time.Since(start)))

	var text *string
	if out.Text != "" {
		t := out.Text
		text = &t
	}

	return &Result{
		URL:                asset.URL,
		SecureURL:          asset.SecureURL,
		PublicID:           asset.PublicID,
		TextResponse:       text,
		UsedReferenceImage: out.UsedReferenceImage,
	}, nil
}
