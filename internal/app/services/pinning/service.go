// Package pinning implements the pin workflow: fetch a generated image,
// upload it to the pinning service, then upload the metadata document that
// references the image's content hash. The ordering is load-bearing, the
// metadata cannot be built before the image hash exists.
package pinning

import (
	"bytes"
	"context"
	"io"

	"github.com/JacLaoky/SogniPet-miniapp/internal/app/metrics"
	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	pinclient "github.com/JacLaoky/SogniPet-miniapp/internal/pinning"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

// namePrefixLen is how much of the prompt ends up in the metadata name.
const namePrefixLen = 20

// Pinner is the provider surface the workflow drives.
type Pinner interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	PinFile(ctx context.Context, filename string, content io.Reader) (string, error)
	PinJSON(ctx context.Context, v interface{}) (string, error)
}

// Service runs the pin workflow.
type Service struct {
	pinner     Pinner
	configured bool
	log        *logger.Logger
}

// New constructs the service. configured reflects whether the pinning
// credential is present; when false every call fails with a configuration
// error before touching the network.
func New(pinner Pinner, configured bool, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("pinning")
	}
	return &Service{pinner: pinner, configured: configured, log: log}
}

// MetadataName derives the display name stored in pinned metadata. The
// prefix is counted in runes so multi-byte prompts never produce invalid
// UTF-8 in the pinned document.
func MetadataName(prompt string) string {
	short := prompt
	if runes := []rune(short); len(runes) > namePrefixLen {
		short = string(runes[:namePrefixLen])
	}
	return "SogniPet: " + short + "..."
}

// Pin uploads the image at imageURL and its metadata document, returning
// the ipfs:// URI of the metadata.
func (s *Service) Pin(ctx context.Context, imageURL, prompt string) (string, error) {
	if !s.configured || s.pinner == nil {
		return "", apperr.Configuration("Pinata JWT not set")
	}
	if imageURL == "" || prompt == "" {
		return "", apperr.Validation("imageUrl and prompt are required")
	}

	imageBytes, err := s.pinner.FetchBytes(ctx, imageURL)
	if err != nil {
		return "", err
	}

	imageHash, err := s.pinner.PinFile(ctx, "sognipet.png", bytes.NewReader(imageBytes))
	if err != nil {
		metrics.RecordPin("file", "error")
		return "", err
	}
	metrics.RecordPin("file", "ok")

	metadata := pinclient.Metadata{
		Name:        MetadataName(prompt),
		Description: prompt,
		Image:       pinclient.URI(imageHash),
	}
	metadataHash, err := s.pinner.PinJSON(ctx, metadata)
	if err != nil {
		metrics.RecordPin("json", "error")
		return "", err
	}
	metrics.RecordPin("json", "ok")

	uri := pinclient.URI(metadataHash)
	s.log.WithField("image", imageHash).WithField("metadata", metadataHash).Info("generation pinned")
	return uri, nil
}
