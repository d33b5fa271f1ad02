// Package ethtest provides an in-memory bind backend for exercising
// deployment flows without a chain.
package ethtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Backend is a minimal, thread-safe in-memory chain. Contract creations
// place a marker code blob at the address go-ethereum derives; transactions
// sent to a registered CREATE2 factory place code at the CREATE2-derived
// address, and revert when that address is already occupied.
type Backend struct {
	mu sync.Mutex

	chainID   *big.Int
	signer    types.Signer
	code      map[common.Address][]byte
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	factories map[common.Address]struct{}
	sent      []*types.Transaction
}

// NewBackend creates an empty backend for the given chain ID.
func NewBackend(chainID *big.Int) *Backend {
	return &Backend{
		chainID:   chainID,
		signer:    types.LatestSignerForChainID(chainID),
		code:      make(map[common.Address][]byte),
		nonces:    make(map[common.Address]uint64),
		receipts:  make(map[common.Hash]*types.Receipt),
		factories: make(map[common.Address]struct{}),
	}
}

// RegisterCreate2Factory marks an address as a CREATE2 factory and places
// code there so it looks deployed.
func (b *Backend) RegisterCreate2Factory(address common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.factories[address] = struct{}{}
	b.code[address] = []byte{0xfa}
}

// SentCount returns how many transactions have been submitted.
func (b *Backend) SentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.sent)
}

// SentTransactions returns every submitted transaction in order.
func (b *Backend) SentTransactions() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]*types.Transaction{}, b.sent...)
}

func (b *Backend) CodeAt(_ context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.code[contract], nil
}

func (b *Backend) PendingCodeAt(_ context.Context, contract common.Address) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.code[contract], nil
}

func (b *Backend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *Backend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.nonces[account], nil
}

func (b *Backend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *Backend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 1_000_000, nil
}

func (b *Backend) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *Backend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions are not supported")
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("failed to recover sender: %w", err)
	}

	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce mismatch: tx has %d, account at %d", tx.Nonce(), b.nonces[from])
	}
	b.nonces[from]++
	b.sent = append(b.sent, tx)

	receipt := &types.Receipt{
		TxHash:      tx.Hash(),
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(1),
	}

	switch {
	case tx.To() == nil:
		created := crypto.CreateAddress(from, tx.Nonce())
		b.code[created] = []byte{0x60, 0x80}
		receipt.ContractAddress = created

	case b.isFactory(*tx.To()):
		data := tx.Data()
		if len(data) < common.HashLength {
			receipt.Status = types.ReceiptStatusFailed
			break
		}

		salt := common.BytesToHash(data[:common.HashLength])
		initCode := data[common.HashLength:]
		created := crypto.CreateAddress2(*tx.To(), salt, crypto.Keccak256(initCode))

		// A second deployment with the same salt and init code reverts.
		if len(b.code[created]) > 0 {
			receipt.Status = types.ReceiptStatusFailed
			break
		}

		b.code[created] = []byte{0x60, 0x80}
		receipt.ContractAddress = created
	}

	b.receipts[tx.Hash()] = receipt

	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}

	return receipt, nil
}

func (b *Backend) isFactory(address common.Address) bool {
	_, ok := b.factories[address]
	return ok
}

// NewTransactor creates a fresh keyed transactor for tests. Gas settings are
// fixed so deployments take the legacy transaction path.
func NewTransactor(t *testing.T, chainID *big.Int) *bind.TransactOpts {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		t.Fatalf("failed to create transactor: %v", err)
	}

	auth.GasLimit = 5_000_000
	auth.GasPrice = big.NewInt(1_000_000_000)

	return auth
}
