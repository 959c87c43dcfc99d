package capability

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds shared by every stage. Analysis stages recover from
// ErrCapabilityUnavailable locally; generation stages surface
// ErrGenerationUnavailable to the caller.
var (
	ErrSignalUnavailable     = errors.New("signal unavailable")
	ErrClusteringDegenerate  = errors.New("clustering degenerate")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrLogoUnavailable       = errors.New("logo unavailable")
	ErrInvalidPlatform       = errors.New("invalid platform")
)

// Analyzer is the text-understanding capability.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

type InlineImage struct {
	Data     []byte
	MimeType string
}

// VisionAnalyzer is the pixel-based variant of the understanding capability.
type VisionAnalyzer interface {
	AnalyzeImages(ctx context.Context, prompt string, images []InlineImage) (string, error)
}

// ImageGenerator returns encoded image bytes for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type Store interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Upload(ctx context.Context, data []byte, path string) (string, error)
}

// StageError names the stage and capability behind a fatal failure.
type StageError struct {
	Stage      string
	Capability string
	Err        error
}

func (e *StageError) Error() string {
	if e.Capability == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Capability, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func Fatal(stage, capabilityName string, kind, err error) error {
	if err == nil {
		err = kind
	} else if kind != nil && !errors.Is(err, kind) {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return &StageError{Stage: stage, Capability: capabilityName, Err: err}
}
