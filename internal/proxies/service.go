package proxies

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/compose-network/proxy-deployer/configs"
	"github.com/compose-network/proxy-deployer/internal/abiargs"
	"github.com/compose-network/proxy-deployer/internal/create2"
	"github.com/compose-network/proxy-deployer/internal/domain"
	"github.com/compose-network/proxy-deployer/internal/manifest"
)

type (
	deployParams struct {
		Contract           string
		Kind               string
		Initializer        string
		DisableInitializer bool
		UnsafeAllow        []string
		ArgsJSON           string
		Salt               string
	}

	predictParams struct {
		Factory   string
		Salt      string
		Bytecode  string
		CtorTypes []string
		CtorArgs  string
	}
)

func deployParamsFromFlags(cmd *cobra.Command) (deployParams, error) {
	var (
		params deployParams
		err    error
	)

	if params.Contract, err = cmd.Flags().GetString("contract"); err != nil {
		return params, err
	}
	if params.Contract == "" {
		return params, fmt.Errorf("--contract is required")
	}
	if params.Kind, err = cmd.Flags().GetString("kind"); err != nil {
		return params, err
	}
	if params.Initializer, err = cmd.Flags().GetString("initializer"); err != nil {
		return params, err
	}
	if params.DisableInitializer, err = cmd.Flags().GetBool("no-initializer"); err != nil {
		return params, err
	}
	if params.UnsafeAllow, err = cmd.Flags().GetStringSlice("unsafe-allow"); err != nil {
		return params, err
	}
	if params.ArgsJSON, err = cmd.Flags().GetString("args"); err != nil {
		return params, err
	}
	if params.Salt, err = cmd.Flags().GetString("salt"); err != nil {
		return params, err
	}

	return params, nil
}

func predictParamsFromFlags(cmd *cobra.Command) (predictParams, error) {
	var (
		params predictParams
		err    error
	)

	if params.Factory, err = cmd.Flags().GetString("factory"); err != nil {
		return params, err
	}
	if params.Salt, err = cmd.Flags().GetString("salt"); err != nil {
		return params, err
	}
	if params.Bytecode, err = cmd.Flags().GetString("bytecode"); err != nil {
		return params, err
	}
	if params.Bytecode == "" {
		return params, fmt.Errorf("--bytecode is required")
	}
	if params.CtorTypes, err = cmd.Flags().GetStringSlice("ctor-types"); err != nil {
		return params, err
	}
	if params.CtorArgs, err = cmd.Flags().GetString("ctor-args"); err != nil {
		return params, err
	}

	return params, nil
}

func runDeploy(ctx context.Context, cfg configs.Config, params deployParams) error {
	opts, err := buildOptions(cfg, params)
	if err != nil {
		return err
	}

	artifacts, err := LoadArtifacts(cfg.Deploy.ArtifactsPath)
	if err != nil {
		return err
	}

	implementation, err := LoadArtifact(cfg.Deploy.ArtifactsPath, params.Contract)
	if err != nil {
		return err
	}

	client, err := ethclient.DialContext(ctx, cfg.Network.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Network.RPCURL, err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Wallet.PrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return fmt.Errorf("failed to create transactor: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}
	auth.GasLimit = cfg.Deploy.GasLimit
	auth.GasPrice = gasPrice

	initializerArgs, err := decodeInitializerArgs(implementation, params.ArgsJSON, opts)
	if err != nil {
		return err
	}

	store := manifest.NewStore(cfg.Deploy.ManifestDir, chainID.Uint64())
	deployer := NewDeployer(client, auth, store, artifacts, nil)

	proxy, err := deployer.DeployProxy(ctx, implementation, initializerArgs, opts)
	if err != nil {
		return err
	}

	fmt.Printf("proxy deployed at %s (kind: %s, tx: %s)\n", proxy.Address.Hex(), proxy.Kind, proxy.Deployment.TxHash.Hex())

	return nil
}

func runPredict(params predictParams) error {
	if !common.IsHexAddress(params.Factory) {
		return fmt.Errorf("invalid factory address: %q", params.Factory)
	}

	var ctorArgs []any
	if err := json.Unmarshal([]byte(params.CtorArgs), &ctorArgs); err != nil {
		return fmt.Errorf("failed to parse --ctor-args: %w", err)
	}

	address, err := create2.Address(
		common.HexToAddress(params.Factory),
		params.Salt,
		common.FromHex(params.Bytecode),
		params.CtorTypes,
		ctorArgs,
	)
	if err != nil {
		return err
	}

	fmt.Println(address.Hex())

	return nil
}

func runManifest(ctx context.Context, cfg configs.Config) error {
	client, err := ethclient.DialContext(ctx, cfg.Network.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Network.RPCURL, err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	store := manifest.NewStore(cfg.Deploy.ManifestDir, chainID.Uint64())
	m, err := store.Read(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(m)
}

func buildOptions(cfg configs.Config, params deployParams) (DeployOptions, error) {
	kind, err := domain.ParseProxyKind(params.Kind)
	if err != nil {
		return DeployOptions{}, err
	}

	unsafeAllow := make([]UnsafeAllow, 0, len(params.UnsafeAllow))
	for _, identifier := range params.UnsafeAllow {
		unsafeAllow = append(unsafeAllow, UnsafeAllow(identifier))
	}

	opts := DeployOptions{
		Kind:               kind,
		Initializer:        params.Initializer,
		DisableInitializer: params.DisableInitializer,
		UnsafeAllow:        unsafeAllow,
	}

	if params.Salt != "" {
		factory := common.HexToAddress(cfg.Deploy.Create2Factory)
		opts.DeployFactory = &factory
		opts.DeployFactorySalt = params.Salt
	}

	return opts, opts.Validate()
}

// decodeInitializerArgs converts the JSON argument array into the typed
// values the initializer's ABI inputs require.
func decodeInitializerArgs(implementation domain.Artifact, argsJSON string, opts DeployOptions) ([]any, error) {
	var raw []any
	if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse --args: %w", err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	name := opts.initializerName()
	if name == "" {
		return nil, fmt.Errorf("initializer is disabled but %d arguments were supplied", len(raw))
	}

	method, ok := implementation.ABI.Methods[name]
	if !ok {
		return nil, fmt.Errorf("initializer %q not found in %s ABI", name, implementation.Name)
	}

	return abiargs.Coerce(method.Inputs, raw)
}
