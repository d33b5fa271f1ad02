// Package proxies provisions contract instances behind upgradeable proxies,
// reusing shared infrastructure (proxy admin, implementation contracts)
// recorded in the per-network manifest.
package proxies

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/proxy-deployer/internal/create2"
	"github.com/compose-network/proxy-deployer/internal/domain"
	"github.com/compose-network/proxy-deployer/internal/executor"
	"github.com/compose-network/proxy-deployer/internal/logger"
	"github.com/compose-network/proxy-deployer/internal/manifest"
)

type (
	// Deployer orchestrates proxy provisioning: it resolves or deploys the
	// implementation, encodes the initializer call, dispatches the proxy
	// protocol, and records the result in the manifest.
	Deployer struct {
		executor  *executor.Executor
		store     *manifest.Store
		artifacts Artifacts
		validator Validator
		logger    *slog.Logger
	}

	// Proxy is the live handle returned for a provisioned proxy: the
	// implementation ABI bound at the proxy address, plus the deployment
	// record for caller inspection.
	Proxy struct {
		Address    common.Address
		Kind       domain.ProxyKind
		Deployment domain.ProxyDeployment
		Contract   *bind.BoundContract
	}
)

// NewDeployer creates a proxy deployer. validator may be nil to skip
// upgrade safety validation.
func NewDeployer(backend executor.Backend, auth *bind.TransactOpts, store *manifest.Store, artifacts Artifacts, validator Validator) *Deployer {
	return &Deployer{
		executor:  executor.New(backend, auth),
		store:     store,
		artifacts: artifacts,
		validator: validator,
		logger:    logger.Named("proxy_deployer"),
	}
}

// DeployProxy provisions a proxy for the implementation artifact, calling
// the initializer with the given arguments, and returns a handle bound to
// the proxy address.
func (d *Deployer) DeployProxy(ctx context.Context, implementation domain.Artifact, initializerArgs []any, opts DeployOptions) (*Proxy, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	kind := opts.resolveKind()
	if kind == domain.ProxyKindBeacon {
		// Fail before the implementation is resolved: no network call may
		// happen for an unsupported protocol.
		return nil, ErrBeaconProxyUnsupported
	}

	d.logger.
		With("implementation", implementation.Name).
		With("kind", string(kind)).
		Info("deploying proxy")

	if d.validator != nil {
		if err := d.validator.ValidateUpgradeSafety(ctx, implementation, opts.UnsafeAllow); err != nil {
			return nil, fmt.Errorf("upgrade safety validation failed for %s: %w", implementation.Name, err)
		}
	}

	implDeployment, err := d.resolveImplementation(ctx, implementation, opts)
	if err != nil {
		return nil, err
	}

	initData, err := initializerData(implementation, initializerArgs, opts)
	if err != nil {
		return nil, err
	}

	plan, err := d.planCreation(ctx, kind, implDeployment.Address, initData)
	if err != nil {
		return nil, err
	}

	deployment, err := d.executeCreation(ctx, plan, opts)
	if err != nil {
		return nil, err
	}

	record := domain.ProxyDeployment{
		Deployment:     deployment,
		Kind:           kind,
		Implementation: implDeployment.Address,
		Admin:          plan.admin,
	}

	if err := d.store.AppendProxy(ctx, record); err != nil {
		return nil, err
	}

	d.logger.
		With("proxy", deployment.Address.Hex()).
		With("implementation_address", implDeployment.Address.Hex()).
		With("tx_hash", deployment.TxHash.Hex()).
		Info("proxy deployed")

	backend := d.executor.Backend()

	return &Proxy{
		Address:    deployment.Address,
		Kind:       kind,
		Deployment: record,
		Contract:   bind.NewBoundContract(deployment.Address, implementation.ABI, backend, backend, backend),
	}, nil
}

// resolveImplementation reuses the implementation recorded for this
// bytecode, deploying it when the network has never seen it.
func (d *Deployer) resolveImplementation(ctx context.Context, implementation domain.Artifact, opts DeployOptions) (domain.Deployment, error) {
	return d.store.FetchOrDeployImplementation(ctx, implementation.BytecodeHash(), func(ctx context.Context) (domain.Deployment, error) {
		if opts.deterministic() {
			salt := create2.NormalizeSalt(opts.DeployFactorySalt)
			return d.executor.DeployDeterministic(ctx, *opts.DeployFactory, salt, implementation.Bytecode)
		}

		return d.executor.Deploy(ctx, implementation)
	})
}

// executeCreation submits the proxy creation, either ordinarily or through
// the deterministic factory with the caller-chosen salt.
func (d *Deployer) executeCreation(ctx context.Context, plan creationPlan, opts DeployOptions) (domain.Deployment, error) {
	if !opts.deterministic() {
		return d.executor.Deploy(ctx, plan.artifact, plan.args...)
	}

	encodedArgs, err := plan.artifact.ABI.Pack("", plan.args...)
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("failed to encode %s constructor args: %w", plan.artifact.Name, err)
	}

	initCode := append(append([]byte{}, plan.artifact.Bytecode...), encodedArgs...)
	salt := create2.NormalizeSalt(opts.DeployFactorySalt)

	return d.executor.DeployDeterministic(ctx, *opts.DeployFactory, salt, initCode)
}

// initializerData encodes the initializer call made through the proxy right
// after creation. A disabled initializer yields empty call data. The default
// initializer is optional: when the implementation has no "initialize"
// function and no arguments were given, the call is skipped.
func initializerData(implementation domain.Artifact, args []any, opts DeployOptions) ([]byte, error) {
	name := opts.initializerName()
	if name == "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("initializer is disabled but %d arguments were supplied", len(args))
		}
		return nil, nil
	}

	if _, ok := implementation.ABI.Methods[name]; !ok {
		if name == defaultInitializer && len(args) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("initializer %q not found in %s ABI", name, implementation.Name)
	}

	data, err := implementation.ABI.Pack(name, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initializer %q: %w", name, err)
	}

	return data, nil
}
