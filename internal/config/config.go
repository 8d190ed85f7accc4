// Package config loads service configuration from the environment, with an
// optional YAML overlay for deployments that prefer a file. Required values
// are not validated at load time: each subsystem asks for what it needs via
// the Require helpers, so a missing credential surfaces as a deterministic
// configuration error on first use instead of a crash at process start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
)

const (
	// DefaultPinataAPIURL is Pinata's public pinning API.
	DefaultPinataAPIURL = "https://api.pinata.cloud"
	// DefaultGatewayURL resolves ipfs:// URIs over HTTP.
	DefaultGatewayURL = "https://gateway.pinata.cloud/ipfs/"
)

// Config holds all runtime settings for sognipetd.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chain   ChainConfig   `yaml:"chain"`
	Sogni   SogniConfig   `yaml:"sogni"`
	Pinata  PinataConfig  `yaml:"pinata"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RateLimitRPS int           `yaml:"rate_limit_rps"`
	RateBurst    int           `yaml:"rate_burst"`
}

// ChainConfig points at the SogniPet contract and its RPC node.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	ChainID         int64         `yaml:"chain_id"`
	MinterKey       string        `yaml:"minter_key"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
}

// SogniConfig carries the generation provider credentials.
type SogniConfig struct {
	APIURL      string        `yaml:"api_url"`
	AppID       string        `yaml:"app_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// PinataConfig carries the pinning provider credential and endpoints.
type PinataConfig struct {
	JWT        string        `yaml:"jwt"`
	APIURL     string        `yaml:"api_url"`
	GatewayURL string        `yaml:"gateway_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds a Config from defaults, the optional YAML file named by
// SOGNIPET_CONFIG, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SOGNIPET_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:   ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // generation waits ride on the response
			RateLimitRPS: 2,
			RateBurst:    5,
		},
		Chain: ChainConfig{
			ChainID:     84532, // Base Sepolia
			CallTimeout: 30 * time.Second,
		},
		Sogni: SogniConfig{
			WaitTimeout: 4 * time.Minute,
		},
		Pinata: PinataConfig{
			APIURL:     DefaultPinataAPIURL,
			GatewayURL: DefaultGatewayURL,
			Timeout:    60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.Chain.RPCURL, "RPC_URL")
	setString(&cfg.Chain.ContractAddress, "CONTRACT_ADDRESS")
	setInt64(&cfg.Chain.ChainID, "CHAIN_ID")
	setString(&cfg.Chain.MinterKey, "MINTER_PRIVATE_KEY")
	setString(&cfg.Sogni.APIURL, "SOGNI_API_URL")
	setString(&cfg.Sogni.AppID, "SOGNI_APP_ID")
	setString(&cfg.Sogni.Username, "SOGNI_USERNAME")
	setString(&cfg.Sogni.Password, "SOGNI_PASSWORD")
	setString(&cfg.Pinata.JWT, "PINATA_JWT")
	setString(&cfg.Pinata.APIURL, "PINATA_API_URL")
	setString(&cfg.Pinata.GatewayURL, "PINATA_GATEWAY_URL")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

// RequireChain validates the settings needed for contract reads.
func (c *Config) RequireChain() error {
	if c.Chain.RPCURL == "" {
		return apperr.Configuration("RPC URL is not configured")
	}
	if c.Chain.ContractAddress == "" {
		return apperr.Configuration("contract address is not configured")
	}
	return nil
}

// RequireMinter validates the settings needed to submit mint transactions.
func (c *Config) RequireMinter() error {
	if err := c.RequireChain(); err != nil {
		return err
	}
	if c.Chain.MinterKey == "" {
		return apperr.Configuration("minter private key is not configured")
	}
	return nil
}

// RequireSogni validates the generation provider credentials.
func (c *Config) RequireSogni() error {
	if c.Sogni.APIURL == "" {
		return apperr.Configuration("Sogni API URL is not configured")
	}
	if c.Sogni.AppID == "" || c.Sogni.Username == "" || c.Sogni.Password == "" {
		return apperr.Configuration("Sogni credentials are not set")
	}
	return nil
}

// RequirePinata validates the pinning credential.
func (c *Config) RequirePinata() error {
	if c.Pinata.JWT == "" {
		return apperr.Configuration("Pinata JWT not set")
	}
	return nil
}
