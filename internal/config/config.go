package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Chain    ChainConfig    `json:"chain"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// ChainConfig represents the EVM network and bond economics configuration.
// Amount-affecting values are integers so cost math stays exact.
type ChainConfig struct {
	RPCURL              string        `json:"rpc_url"`
	ChainID             int64         `json:"chain_id"`
	ContractAddress     string        `json:"contract_address"`
	PaymentTokenAddress string        `json:"payment_token_address"`
	PaymentMode         string        `json:"payment_mode"` // "token" or "native"
	BondPriceUSD        uint64        `json:"bond_price_usd"`
	EthPriceUSD         uint64        `json:"eth_price_usd"`
	MaxBondsPerInvestor uint64        `json:"max_bonds_per_investor"`
	TokenDecimals       uint8         `json:"token_decimals"`
	ConfirmationTimeout time.Duration `json:"confirmation_timeout"`
	SignerKeyEnv        string        `json:"signer_key_env"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret  string        `json:"jwt_secret"`
	SessionTTL time.Duration `json:"session_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "mochatree_portal",
			SSLMode: "disable",
		},
		Chain: ChainConfig{
			RPCURL:              "https://sepolia-rpc.scroll.io",
			ChainID:             534351, // Scroll Sepolia
			ContractAddress:     "0x4b02Bada976702E83Cf91Cd0B896852099099352",
			PaymentMode:         "token",
			BondPriceUSD:        100,
			EthPriceUSD:         1000,
			MaxBondsPerInvestor: 20,
			TokenDecimals:       18,
			ConfirmationTimeout: 3 * time.Minute,
			SignerKeyEnv:        "CHAIN_SIGNER_KEY",
		},
		Security: SecurityConfig{
			SessionTTL: 24 * time.Hour,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if rpc := os.Getenv("CHAIN_RPC_URL"); rpc != "" {
		config.Chain.RPCURL = rpc
	}
	if addr := os.Getenv("CHAIN_CONTRACT_ADDRESS"); addr != "" {
		config.Chain.ContractAddress = addr
	}
	if addr := os.Getenv("CHAIN_PAYMENT_TOKEN_ADDRESS"); addr != "" {
		config.Chain.PaymentTokenAddress = addr
	}
	if mode := os.Getenv("CHAIN_PAYMENT_MODE"); mode != "" {
		config.Chain.PaymentMode = mode
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
