package configs

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var Values Config

type (
	Config struct {
		Network Network `mapstructure:"network"`
		Wallet  Wallet  `mapstructure:"wallet"`
		Deploy  Deploy  `mapstructure:"deploy"`
	}

	Network struct {
		Name   string `mapstructure:"name"`
		RPCURL string `mapstructure:"rpc-url"`
	}

	Wallet struct {
		PrivateKey string `mapstructure:"private-key"`
	}

	Deploy struct {
		ManifestDir   string `mapstructure:"manifest-dir"`
		ArtifactsPath string `mapstructure:"artifacts-path"`
		GasLimit      uint64 `mapstructure:"gas-limit"`

		// Create2Factory is the deterministic deployment factory used when
		// a salt is supplied. Defaults to the factory deployed at the same
		// address on every EVM network.
		Create2Factory string `mapstructure:"create2-factory"`
	}
)

func (c *Config) Validate() error {
	var errs []error

	if c.Network.RPCURL == "" {
		errs = append(errs, errors.New("network.rpc-url is required"))
	}
	if c.Wallet.PrivateKey == "" {
		errs = append(errs, errors.New("wallet.private-key is required"))
	}
	if c.Deploy.ManifestDir == "" {
		errs = append(errs, errors.New("deploy.manifest-dir is required"))
	}
	if c.Deploy.ArtifactsPath == "" {
		errs = append(errs, errors.New("deploy.artifacts-path is required"))
	}
	if c.Deploy.Create2Factory != "" && !common.IsHexAddress(c.Deploy.Create2Factory) {
		errs = append(errs, fmt.Errorf("deploy.create2-factory is not a valid address: %q", c.Deploy.Create2Factory))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}
