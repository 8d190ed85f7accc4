// Package mint orchestrates the full mint: pin the generation, submit the
// mint transaction and follow it to confirmation. Each transition is
// reported through the observer so callers can show progress.
package mint

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	pinsvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/pinning"
	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	"github.com/JacLaoky/SogniPet-miniapp/internal/chain"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

// Status is a user-visible transaction state.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusConfirming Status = "confirming"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
)

// Observer receives status transitions during a mint. May be nil.
type Observer func(Status)

// ChainWriter is the contract write surface the workflow drives.
type ChainWriter interface {
	Minter(key string) (*bind.TransactOpts, error)
	SafeMint(opts *bind.TransactOpts, to, metadataURI string) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Result describes a confirmed mint.
type Result struct {
	TokenID     uint64 `json:"tokenId"`
	TxHash      string `json:"txHash"`
	MetadataURI string `json:"metadataUri"`
	Status      Status `json:"status"`
}

// Service runs the mint workflow.
type Service struct {
	pins         *pinsvc.Service
	writer       ChainWriter
	minterKey    string
	contractAddr common.Address
	log          *logger.Logger
}

// New constructs the service. An empty minterKey leaves minting
// unconfigured; calls then fail with a configuration error.
func New(pins *pinsvc.Service, writer ChainWriter, minterKey string, contractAddr common.Address, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("mint")
	}
	return &Service{
		pins:         pins,
		writer:       writer,
		minterKey:    minterKey,
		contractAddr: contractAddr,
		log:          log,
	}
}

// Mint pins the generation and mints the token to owner. Every step gates
// on the previous one succeeding.
func (s *Service) Mint(ctx context.Context, owner, imageURL, prompt string, observe Observer) (Result, error) {
	if observe == nil {
		observe = func(Status) {}
	}
	if owner == "" {
		return Result{}, apperr.Validation("userAddress is required")
	}
	if s.writer == nil || s.minterKey == "" {
		return Result{}, apperr.Configuration("minter private key is not configured")
	}

	metadataURI, err := s.pins.Pin(ctx, imageURL, prompt)
	if err != nil {
		return Result{}, err
	}

	opts, err := s.writer.Minter(s.minterKey)
	if err != nil {
		return Result{}, apperr.Configuration("%s", err.Error())
	}
	opts.Context = ctx

	tx, err := s.writer.SafeMint(opts, owner, metadataURI)
	if err != nil {
		observe(StatusFailed)
		return Result{}, apperr.Upstream(err, "mint transaction rejected")
	}
	observe(StatusSubmitted)
	s.log.WithField("tx", tx.Hash().Hex()).WithField("owner", owner).Info("mint submitted")

	observe(StatusConfirming)
	receipt, err := s.writer.WaitMined(ctx, tx)
	if err != nil {
		observe(StatusFailed)
		return Result{}, apperr.Upstream(err, "mint confirmation failed")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		observe(StatusFailed)
		return Result{}, apperr.UpstreamDetail("mint transaction reverted", tx.Hash().Hex())
	}

	tokenID, err := chain.MintedTokenID(receipt, s.contractAddr)
	if err != nil {
		// Confirmed on chain but the receipt is missing the expected
		// event; report the mint without an id rather than failing it.
		s.log.WithError(err).Warn("confirmed mint without Transfer event")
	}

	observe(StatusConfirmed)
	return Result{
		TokenID:     tokenID,
		TxHash:      tx.Hash().Hex(),
		MetadataURI: metadataURI,
		Status:      StatusConfirmed,
	}, nil
}
