package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder.
	_ "image/jpeg" // Register JPEG decoder.
	_ "image/png"  // Register PNG decoder.
	"math/rand/v2"
	"strings"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
)

var (
	// ErrEmptyImage is returned for a zero-length payload.
	ErrEmptyImage = errors.New("image is empty")
	// ErrInvalidImage is returned when the payload is not a decodable image.
	ErrInvalidImage = errors.New("image cannot be decoded")
	// errUnknownMode is returned by New for unsupported classifier modes.
	errUnknownMode = errors.New("unknown classifier mode")
)

// Classifier decides whether an image contains a cat.
type Classifier interface {
	ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error)
}

// RandomClassifier answers randomly once the payload decodes as an image.
type RandomClassifier struct {
	// confidence returns a pseudo-random confidence score in [0, 100).
	confidence func() float32
}

// NewRandomClassifier creates a classifier backed by math/rand.
func NewRandomClassifier() *RandomClassifier {
	return &RandomClassifier{
		confidence: func() float32 {
			return rand.Float32() * 100 //nolint:gosec // Not security sensitive.
		},
	}
}

// ImageContainsCat reports a cat when the random confidence exceeds the threshold.
func (c *RandomClassifier) ImageContainsCat(ctx context.Context, img []byte, confidenceThreshold float32) (bool, error) {
	format, err := validate(img)
	if err != nil {
		return false, err
	}

	score := c.confidence()

	logger.DebugKV(ctx, "Image classified",
		"format", format,
		"confidence", score,
		"threshold", confidenceThreshold)

	return score > confidenceThreshold, nil
}

// StaticClassifier always returns the same answer for a decodable image.
type StaticClassifier struct {
	// containsCat is the fixed answer.
	containsCat bool
}

// NewStaticClassifier creates a classifier with a fixed answer.
func NewStaticClassifier(containsCat bool) *StaticClassifier {
	return &StaticClassifier{containsCat: containsCat}
}

// ImageContainsCat returns the fixed answer.
func (c *StaticClassifier) ImageContainsCat(_ context.Context, img []byte, _ float32) (bool, error) {
	if _, err := validate(img); err != nil {
		return false, err
	}

	return c.containsCat, nil
}

// New creates the classifier selected by mode.
func New(mode string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.ClassifierRandom, "":
		return NewRandomClassifier(), nil
	case config.ClassifierAlways:
		return NewStaticClassifier(true), nil
	case config.ClassifierNever:
		return NewStaticClassifier(false), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMode, mode)
	}
}

// validate decodes the image header and returns the format name.
func validate(img []byte) (string, error) {
	if len(img) == 0 {
		return "", ErrEmptyImage
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return format, nil
}
