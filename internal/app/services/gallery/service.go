// Package gallery assembles the set of pets owned by an address. Ownership
// comes from the contract, display data from pinned metadata. A token whose
// metadata cannot be resolved is reported as a failure alongside the pets
// that did resolve, never as a failure of the whole gallery.
package gallery

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	pinclient "github.com/JacLaoky/SogniPet-miniapp/internal/pinning"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

// metadataWorkers bounds concurrent metadata fetches per request.
const metadataWorkers = 8

// ChainReader is the contract read surface the gallery needs.
type ChainReader interface {
	TotalSupply(ctx context.Context) (uint64, error)
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)
	TokenURI(ctx context.Context, tokenID uint64) (string, error)
}

// MetadataResolver turns a token URI into a metadata document.
type MetadataResolver interface {
	GatewayURL(uri string) (string, error)
	FetchJSON(ctx context.Context, url string, target interface{}) error
}

// Pet is one owned token with its resolved metadata.
type Pet struct {
	TokenID     uint64 `json:"tokenId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	MetadataURI string `json:"metadataUri"`
}

// TokenFailure records a token whose metadata could not be resolved.
type TokenFailure struct {
	TokenID uint64 `json:"tokenId"`
	Reason  string `json:"reason"`
}

// Result is a gallery listing for one owner.
type Result struct {
	Pets     []Pet          `json:"pets"`
	Failures []TokenFailure `json:"failures"`
}

// Service builds gallery listings.
type Service struct {
	reader   ChainReader
	resolver MetadataResolver
	log      *logger.Logger
}

// New constructs the service.
func New(reader ChainReader, resolver MetadataResolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("gallery")
	}
	return &Service{reader: reader, resolver: resolver, log: log}
}

// List returns every pet owned by owner. Token ownership is read from the
// contract for all minted ids; the owner check ignores case.
func (s *Service) List(ctx context.Context, owner string) (Result, error) {
	if !common.IsHexAddress(owner) {
		return Result{}, apperr.Validation("address is not a valid wallet address")
	}
	if s.reader == nil {
		return Result{}, apperr.Configuration("chain RPC is not configured")
	}

	ownerAddr := common.HexToAddress(owner)

	supply, err := s.reader.TotalSupply(ctx)
	if err != nil {
		return Result{}, apperr.Upstream(err, "failed to read token supply")
	}

	var owned []uint64
	for id := uint64(0); id < supply; id++ {
		tokenOwner, err := s.reader.OwnerOf(ctx, id)
		if err != nil {
			// Burned or otherwise unreadable tokens are not part of
			// anyone's gallery.
			s.log.WithError(err).WithField("token", id).Debug("skipping unreadable token")
			continue
		}
		if common.HexToAddress(tokenOwner) == ownerAddr {
			owned = append(owned, id)
		}
	}

	result := Result{Pets: []Pet{}, Failures: []TokenFailure{}}
	if len(owned) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(metadataWorkers)

	for _, id := range owned {
		id := id
		group.Go(func() error {
			pet, err := s.resolve(groupCtx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One broken token must not take down its siblings.
				result.Failures = append(result.Failures, TokenFailure{TokenID: id, Reason: err.Error()})
				return nil
			}
			result.Pets = append(result.Pets, pet)
			return nil
		})
	}
	group.Wait()

	sort.Slice(result.Pets, func(i, j int) bool { return result.Pets[i].TokenID < result.Pets[j].TokenID })
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].TokenID < result.Failures[j].TokenID })
	return result, nil
}

func (s *Service) resolve(ctx context.Context, tokenID uint64) (Pet, error) {
	uri, err := s.reader.TokenURI(ctx, tokenID)
	if err != nil {
		return Pet{}, err
	}

	metadataURL, err := s.resolver.GatewayURL(uri)
	if err != nil {
		return Pet{}, err
	}

	var meta pinclient.Metadata
	if err := s.resolver.FetchJSON(ctx, metadataURL, &meta); err != nil {
		return Pet{}, err
	}

	imageURL, err := s.resolver.GatewayURL(meta.Image)
	if err != nil {
		return Pet{}, err
	}

	return Pet{
		TokenID:     tokenID,
		Name:        meta.Name,
		Description: meta.Description,
		ImageURL:    imageURL,
		MetadataURI: uri,
	}, nil
}
