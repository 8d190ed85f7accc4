package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// UnlockPriceWei is the fixed premium unlock fee (0.00001 ETH).
var UnlockPriceWei = big.NewInt(10_000_000_000_000)

// SogniPetABI covers the contract surface this service consumes.
const SogniPetABI = `[
	{
		"inputs": [{"name": "user", "type": "address"}],
		"name": "isPremiumUser",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalSupply",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "tokenURI",
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "uri", "type": "string"}
		],
		"name": "safeMint",
		"outputs": [{"name": "tokenId", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "payToUnlock",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": true, "name": "tokenId", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	}
]`

// transferTopic identifies ERC-721 Transfer logs in mint receipts.
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Contract is a typed wrapper around the on-chain SogniPet contract.
type Contract struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
}

// NewContract binds an already-deployed SogniPet contract.
func NewContract(addr common.Address, backend bind.ContractBackend) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(SogniPetABI))
	if err != nil {
		return nil, err
	}
	bound := bind.NewBoundContract(addr, parsed, backend, backend, backend)
	return &Contract{
		abi:      parsed,
		address:  addr,
		contract: bound,
	}, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address { return c.address }

// IsPremiumUser reads the premium flag for an address.
func (c *Contract) IsPremiumUser(ctx context.Context, user common.Address) (bool, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isPremiumUser", user)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// TotalSupply returns the number of minted tokens.
func (c *Contract) TotalSupply(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "totalSupply")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// OwnerOf returns the current owner of a token.
func (c *Contract) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// TokenURI returns the metadata URI for a token.
func (c *Contract) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// SafeMint mints a new token for `to` pointing at metadataURI.
func (c *Contract) SafeMint(opts *bind.TransactOpts, to common.Address, metadataURI string) (*types.Transaction, error) {
	return c.contract.Transact(opts, "safeMint", to, metadataURI)
}

// PayToUnlock pays the fixed unlock fee for the sender in opts.
func (c *Contract) PayToUnlock(opts *bind.TransactOpts) (*types.Transaction, error) {
	oldValue := opts.Value
	opts.Value = UnlockPriceWei
	tx, err := c.contract.Transact(opts, "payToUnlock")
	opts.Value = oldValue
	return tx, err
}

// MintedTokenID extracts the token id from the Transfer event in a mint
// receipt. Only logs emitted by the bound contract are considered.
func MintedTokenID(receipt *types.Receipt, contractAddr common.Address) (uint64, error) {
	for _, log := range receipt.Logs {
		if log.Address != contractAddr {
			continue
		}
		if len(log.Topics) == 4 && log.Topics[0] == transferTopic {
			return new(big.Int).SetBytes(log.Topics[3].Bytes()).Uint64(), nil
		}
	}
	return 0, fmt.Errorf("no Transfer event in receipt %s", receipt.TxHash.Hex())
}
