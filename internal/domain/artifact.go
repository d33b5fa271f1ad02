package domain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Artifact is a compiled contract ready for deployment: its ABI and the
// immutable creation bytecode (constructor arguments excluded).
type Artifact struct {
	Name     string
	ABI      abi.ABI
	RawABI   string
	Bytecode []byte
}

// BytecodeHash returns the keccak256 hash of the creation bytecode. The
// manifest keys shared implementation deployments by this value, so two
// artifacts with identical bytecode resolve to the same deployment.
func (a Artifact) BytecodeHash() common.Hash {
	return crypto.Keccak256Hash(a.Bytecode)
}
