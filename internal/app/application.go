// Package app wires the SogniPet services together: the chain client, the
// generation provider, the pinning client, and the workflows built on top
// of them.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	gallerysvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/gallery"
	generatesvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/generate"
	mintsvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/mint"
	pinsvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/pinning"
	"github.com/JacLaoky/SogniPet-miniapp/internal/chain"
	"github.com/JacLaoky/SogniPet-miniapp/internal/config"
	"github.com/JacLaoky/SogniPet-miniapp/internal/pinning"
	"github.com/JacLaoky/SogniPet-miniapp/internal/sogni"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

// Application ties the domain services together and owns their shared
// clients.
type Application struct {
	cfg   *config.Config
	log   *logger.Logger
	chain *chain.Client

	Generate *generatesvc.Service
	Pins     *pinsvc.Service
	Mint     *mintsvc.Service
	Gallery  *gallerysvc.Service

	// Premium answers the premium-tier lookups. Nil when the chain RPC
	// is not configured.
	Premium generatesvc.PremiumChecker

	// GenerateTimeout bounds one generation round trip, submission
	// through completion polling.
	GenerateTimeout time.Duration
}

// New builds a fully initialised application. Missing provider credentials
// do not fail startup; the affected endpoints answer with configuration
// errors instead, so a partially configured instance still serves what it
// can.
func New(cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	a := &Application{cfg: cfg, log: log, GenerateTimeout: cfg.Sogni.WaitTimeout}

	if err := cfg.RequireChain(); err == nil {
		chainClient, err := chain.NewClient(chain.Config{
			RPCURL:          cfg.Chain.RPCURL,
			ContractAddress: cfg.Chain.ContractAddress,
			ChainID:         cfg.Chain.ChainID,
			Timeout:         cfg.Chain.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.chain = chainClient
	} else {
		log.WithError(err).Warn("chain RPC not configured, premium checks and minting disabled")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	provider := sogni.NewProvider(cfg.Sogni.APIURL, sogni.Credentials{
		AppID:    cfg.Sogni.AppID,
		Username: cfg.Sogni.Username,
		Password: cfg.Sogni.Password,
	}, httpClient, log.WithField("component", "sogni"))

	clientFunc := func(ctx context.Context) (generatesvc.GenerationClient, error) {
		return provider.Client(ctx)
	}

	if a.chain != nil {
		a.Premium = a.chain
	}
	a.Generate = generatesvc.New(a.Premium, clientFunc, log.WithField("component", "generate"))

	pinataClient, err := pinning.NewClient(pinning.Config{
		JWT:        cfg.Pinata.JWT,
		APIURL:     cfg.Pinata.APIURL,
		GatewayURL: cfg.Pinata.GatewayURL,
	}, httpClient, log.WithField("component", "pinata"))
	if err != nil {
		return nil, err
	}

	a.Pins = pinsvc.New(pinataClient, cfg.RequirePinata() == nil, log.WithField("component", "pinning"))

	if a.chain != nil {
		a.Mint = mintsvc.New(a.Pins, a.chain, cfg.Chain.MinterKey,
			common.HexToAddress(cfg.Chain.ContractAddress), log.WithField("component", "mint"))
		a.Gallery = gallerysvc.New(a.chain, pinataClient, log.WithField("component", "gallery"))
	}

	return a, nil
}

// IsPremiumUser reports the on-chain premium flag for addr.
func (a *Application) IsPremiumUser(ctx context.Context, addr string) (bool, error) {
	if a.Premium == nil {
		return false, apperr.Configuration("RPC URL is not configured")
	}
	return a.Premium.IsPremiumUser(ctx, addr)
}

// Close releases the application's long-lived connections.
func (a *Application) Close() {
	if a.chain != nil {
		a.chain.Close()
	}
}
