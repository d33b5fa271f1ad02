// Package executor submits contract creation transactions and awaits their
// confirmation, for both ordinary factory deployments and deterministic
// CREATE2 deployments through an on-chain factory.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/compose-network/proxy-deployer/internal/create2"
	"github.com/compose-network/proxy-deployer/internal/domain"
	"github.com/compose-network/proxy-deployer/internal/logger"
)

// Backend is the chain access the executor needs: transaction submission
// plus receipt and code lookups for confirmation.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Executor deploys contracts through a single signer on a single network.
type Executor struct {
	backend Backend
	auth    *bind.TransactOpts
	logger  *slog.Logger
}

// New creates an executor bound to a backend and transact options. The
// options carry the signer; gas settings are resolved per deployment when
// unset.
func New(backend Backend, auth *bind.TransactOpts) *Executor {
	return &Executor{
		backend: backend,
		auth:    auth,
		logger:  logger.Named("executor"),
	}
}

// Backend exposes the underlying chain access so callers can bind contract
// handles at deployed addresses.
func (e *Executor) Backend() Backend {
	return e.backend
}

// From returns the signer address used for deployments.
func (e *Executor) From() common.Address {
	return e.auth.From
}

// Deploy submits an ordinary creation transaction for the artifact with the
// given constructor arguments and waits for it to be mined.
func (e *Executor) Deploy(ctx context.Context, artifact domain.Artifact, constructorArgs ...any) (domain.Deployment, error) {
	auth := e.transactOpts(ctx)

	address, tx, _, err := bind.DeployContract(auth, artifact.ABI, artifact.Bytecode, e.backend, constructorArgs...)
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("failed to deploy %s: %w", artifact.Name, err)
	}

	e.logger.
		With("contract", artifact.Name).
		With("address", address.Hex()).
		With("tx_hash", tx.Hash().Hex()).
		Info("creation transaction sent")

	if err := e.awaitReceipt(ctx, tx); err != nil {
		return domain.Deployment{}, err
	}

	return domain.Deployment{Address: address, TxHash: tx.Hash(), Transaction: tx}, nil
}

// DeployDeterministic deploys initCode through the CREATE2 factory at
// factoryAddress using the given salt. The resulting address is computed
// off-chain before submission; a revert (for example when the target address
// already holds code from an earlier call) propagates unmodified, since
// resubmitting with the same salt is never safe.
func (e *Executor) DeployDeterministic(ctx context.Context, factoryAddress common.Address, salt common.Hash, initCode []byte) (domain.Deployment, error) {
	predicted := create2.ComputeAddress(factoryAddress, salt, initCode)

	e.logger.
		With("factory", factoryAddress.Hex()).
		With("salt", salt.Hex()).
		With("predicted_address", predicted.Hex()).
		Info("submitting deterministic deployment")

	data := make([]byte, 0, common.HashLength+len(initCode))
	data = append(data, salt.Bytes()...)
	data = append(data, initCode...)

	tx, err := e.submit(ctx, factoryAddress, data)
	if err != nil {
		return domain.Deployment{}, err
	}

	if err := e.awaitReceipt(ctx, tx); err != nil {
		return domain.Deployment{}, err
	}

	code, err := e.backend.CodeAt(ctx, predicted, nil)
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("failed to read code at %s: %w", predicted.Hex(), err)
	}
	if len(code) == 0 {
		return domain.Deployment{}, fmt.Errorf("no code at predicted address %s after deterministic deployment", predicted.Hex())
	}

	return domain.Deployment{Address: predicted, TxHash: tx.Hash(), Transaction: tx}, nil
}

// submit signs and sends a legacy transaction carrying data to the factory.
func (e *Executor) submit(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := e.backend.PendingNonceAt(ctx, e.auth.From)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending nonce: %w", err)
	}

	gasPrice := e.auth.GasPrice
	if gasPrice == nil {
		gasPrice, err = e.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	gasLimit := e.auth.GasLimit
	if gasLimit == 0 {
		gasLimit, err = e.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     e.auth.From,
			To:       &to,
			GasPrice: gasPrice,
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signedTx, err := e.auth.Signer(e.auth.From, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx, nil
}

func (e *Executor) awaitReceipt(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for transaction %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted with status %d", tx.Hash().Hex(), receipt.Status)
	}

	return nil
}

// transactOpts copies the executor options with the call context attached.
func (e *Executor) transactOpts(ctx context.Context) *bind.TransactOpts {
	auth := *e.auth
	auth.Context = ctx

	return &auth
}
