// Package generate implements the generation workflow: validate the
// request, authorize it against the on-chain premium tier, pick a model and
// drive one generation job to completion.
package generate

import (
	"context"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	"github.com/JacLaoky/SogniPet-miniapp/internal/sogni"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

const (
	// FreePromptLimit caps prompt length for free-tier users.
	FreePromptLimit = 10
	// PremiumPromptLimit caps prompt length for premium users.
	PremiumPromptLimit = 5000
)

// PremiumChecker reads the premium flag from the chain.
type PremiumChecker interface {
	IsPremiumUser(ctx context.Context, addr string) (bool, error)
}

// GenerationClient is the provider surface the workflow drives.
type GenerationClient interface {
	Models() []sogni.Model
	CreateProject(ctx context.Context, params sogni.ProjectParams) (string, error)
	WaitForCompletion(ctx context.Context, projectID string) ([]string, error)
}

// ClientFunc supplies the shared generation client, initializing it on
// first use.
type ClientFunc func(ctx context.Context) (GenerationClient, error)

// Request carries one generation request.
type Request struct {
	Prompt      string
	ModelID     string
	UserAddress string
}

// Service runs the generate workflow.
type Service struct {
	chain  PremiumChecker
	client ClientFunc
	log    *logger.Logger
}

// New constructs the service. chain may be nil when the RPC side is not
// configured; requests then fail with a configuration error.
func New(chain PremiumChecker, client ClientFunc, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("generate")
	}
	return &Service{chain: chain, client: client, log: log}
}

// Generate validates, authorizes and executes one generation. It returns
// the transient provider URL of the single generated image.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" || req.UserAddress == "" {
		return "", apperr.Validation("Prompt and userAddress are required")
	}
	if s.chain == nil {
		return "", apperr.Configuration("RPC URL is not configured")
	}

	isPremium, err := s.chain.IsPremiumUser(ctx, req.UserAddress)
	if err != nil {
		return "", apperr.Upstream(err, "premium status check failed")
	}

	limit := FreePromptLimit
	if isPremium {
		limit = PremiumPromptLimit
	}
	if len(req.Prompt) > limit {
		return "", apperr.Authorization(
			"Prompt is too long. Your limit is %d characters. Upgrade to premium for a higher limit.", limit)
	}

	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	mostPopular, ok := sogni.MostPopular(client.Models())
	if !ok {
		return "", apperr.UpstreamDetail("Failed to generate image", "provider reported no available models")
	}

	modelID := mostPopular.ID
	if req.ModelID != "" && req.ModelID != mostPopular.ID {
		if !isPremium {
			return "", apperr.Authorization("You must pay to unlock this model")
		}
		modelID = req.ModelID
	}

	projectID, err := client.CreateProject(ctx, sogni.ProjectParams{
		ModelID:        modelID,
		PositivePrompt: req.Prompt,
		NegativePrompt: sogni.NegativePrompt,
		StylePrompt:    "",
		TokenType:      "spark",
		Steps:          50,
		Guidance:       7.5,
		NumberOfImages: 1,
	})
	if err != nil {
		return "", err
	}
	s.log.WithField("project", projectID).WithField("model", modelID).Info("generation submitted")

	imageURLs, err := client.WaitForCompletion(ctx, projectID)
	if err != nil {
		return "", err
	}
	if len(imageURLs) == 0 {
		return "", apperr.EmptyResult("Image generation failed, no URLs returned.")
	}
	return imageURLs[0], nil
}

// Models lists the provider's catalog, initializing the client if needed.
func (s *Service) Models(ctx context.Context) ([]sogni.Model, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Models(), nil
}
