package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	// EnvPrefix is the envconfig prefix. Every variable also falls back to its bare tag name,
	// so both CKB_EXAMPLES_CKB_RPC_URL and CKB_RPC_URL are accepted.
	EnvPrefix = "CKB_EXAMPLES"

	// DotEnvFile is loaded before reading the environment when it exists.
	DotEnvFile = ".env"
)

// Config is used to hold all runtime configuration.
type Config struct {
	Node struct {
		URL string `default:"http://127.0.0.1:8114" envconfig:"CKB_RPC_URL"`
	}
	Accounts struct {
		MinerLockArg    string `envconfig:"MINER_LOCK_ARG"`
		MinerPrivateKey string `envconfig:"MINER_PRIVATE_KEY"`
		AliceLockArg    string `envconfig:"ALICE_LOCK_ARG"`
	}
	Chain struct {
		Environment string `default:"ckb_dev" envconfig:"CKB_CHAIN_ENV"`
		FeeRate     uint64 `default:"1000" envconfig:"FEE_RATE"`
		Fee         uint64 `default:"100000000" envconfig:"FEE"`
	}
	Miner struct {
		Timeout      time.Duration `default:"2m" envconfig:"MINE_TIMEOUT"`
		PollInterval time.Duration `default:"300ms" envconfig:"POLL_INTERVAL"`
		Step         int           `default:"3" envconfig:"MINE_STEP"`
	}
	Log struct {
		Format      string `default:"json" envconfig:"LOG_FORMAT"`
		Development bool   `default:"false" envconfig:"DEVELOPMENT"`
	}
	AWS struct {
		Region          string `default:"ap-southeast-2" envconfig:"AWS_REGION" json:"AWS_REGION"`
		AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" json:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" json:"AWS_SECRET_ACCESS_KEY"`
		MaxRetries      int    `default:"4" envconfig:"AWS_MAX_RETRIES"`
	}
	Hashes struct {
		Bucket string `default:"standalone" envconfig:"CKB_HASHES_BUCKET"`
		Root   string `default:"." envconfig:"CKB_HASHES_ROOT"`
		Key    string `default:"var/hashes.json" envconfig:"CKB_HASHES_KEY"`
	}
	Archive struct {
		Bucket string `default:"standalone" envconfig:"TX_ARCHIVE_BUCKET"`
		Root   string `default:"./tmp" envconfig:"TX_ARCHIVE_ROOT"`
	}
}

// SafeConfig masks sensitive config values
func SafeConfig(cfg Config) *Config {
	cfgSafe := cfg

	if len(cfgSafe.Accounts.MinerPrivateKey) > 0 {
		cfgSafe.Accounts.MinerPrivateKey = "*** Masked ***"
	}
	if len(cfgSafe.AWS.AccessKeyID) > 0 {
		cfgSafe.AWS.AccessKeyID = "*** Masked ***"
	}
	if len(cfgSafe.AWS.SecretAccessKey) > 0 {
		cfgSafe.AWS.SecretAccessKey = "*** Masked ***"
	}

	return &cfgSafe
}

// Environment returns configuration sourced from environment variables. Values in a .env
// file in the working directory are used for variables that are not already set.
func Environment() (*Config, error) {
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}

	return &cfg, nil
}

// LoadDotEnv loads the file into the environment without overriding set variables. A
// missing file is not an error.
func LoadDotEnv(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return errors.Wrapf(err, "load %s", filename)
	}
	return nil
}
