// Package chain provides read and write access to the SogniPet contract on
// an EVM chain. Reads are plain eth_call round trips with no retries and no
// caching: every premium check re-queries the node so the answer is never
// stale behind an unlock transaction.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Config holds client configuration.
type Config struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
	Timeout         time.Duration
}

// Client wraps an RPC connection and the bound SogniPet contract.
type Client struct {
	eth      *ethclient.Client
	contract *Contract
	chainID  *big.Int
	timeout  time.Duration
}

// NewClient dials the RPC endpoint and binds the contract.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	contract, err := NewContract(common.HexToAddress(cfg.ContractAddress), eth)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("bind contract: %w", err)
	}

	return &Client{
		eth:      eth,
		contract: contract,
		chainID:  big.NewInt(cfg.ChainID),
		timeout:  timeout,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// callCtx bounds a read call when the caller did not.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// IsPremiumUser reports the on-chain premium flag for an address.
func (c *Client) IsPremiumUser(ctx context.Context, addr string) (bool, error) {
	if !common.IsHexAddress(addr) {
		return false, fmt.Errorf("invalid address %q", addr)
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.contract.IsPremiumUser(ctx, common.HexToAddress(addr))
}

// TotalSupply returns the number of minted tokens.
func (c *Client) TotalSupply(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	supply, err := c.contract.TotalSupply(ctx)
	if err != nil {
		return 0, err
	}
	return supply.Uint64(), nil
}

// OwnerOf returns the current owner of a token.
func (c *Client) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	owner, err := c.contract.OwnerOf(ctx, new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}
	return owner.Hex(), nil
}

// TokenURI returns the metadata URI recorded for a token.
func (c *Client) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.contract.TokenURI(ctx, new(big.Int).SetUint64(tokenID))
}

// Minter builds transact options from a hex-encoded private key.
func (c *Client) Minter(key string) (*bind.TransactOpts, error) {
	priv, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("parse minter key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(priv, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	return opts, nil
}

// SafeMint submits a mint transaction assigning the token to `to`.
func (c *Client) SafeMint(opts *bind.TransactOpts, to, metadataURI string) (*types.Transaction, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient address %q", to)
	}
	return c.contract.SafeMint(opts, common.HexToAddress(to), metadataURI)
}

// PayToUnlock submits the premium unlock transaction for the key in opts.
// The unlock fee is fixed by the contract; opts.Value is set here.
func (c *Client) PayToUnlock(opts *bind.TransactOpts) (*types.Transaction, error) {
	return c.contract.PayToUnlock(opts)
}

// WaitMined blocks until the transaction is included and returns its receipt.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, c.eth, tx)
}
