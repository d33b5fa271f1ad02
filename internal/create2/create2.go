// Package create2 computes deterministic contract creation addresses with
// the CREATE2 opcode semantics:
//
//	address = keccak256(0xff ++ factory ++ salt ++ keccak256(initCode))[12:]
//
// The computation is pure: identical inputs always yield the identical
// address and no network access takes place.
package create2

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/compose-network/proxy-deployer/internal/abiargs"
)

// ComputeAddress returns the CREATE2 address for a deployment of initCode
// through the factory at factoryAddress with the given 32-byte salt.
// initCode is the creation bytecode with the ABI-encoded constructor
// arguments already appended.
func ComputeAddress(factoryAddress common.Address, salt common.Hash, initCode []byte) common.Address {
	data := make([]byte, 0, 1+common.AddressLength+2*common.HashLength)
	data = append(data, 0xff)
	data = append(data, factoryAddress.Bytes()...)
	data = append(data, salt.Bytes()...)
	data = append(data, crypto.Keccak256(initCode)...)

	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// NormalizeSalt turns a caller-supplied salt into the 32-byte value the
// factory sees. A 0x-prefixed 32-byte hex string is used verbatim; any other
// string (names, decimal numbers) is keccak256-hashed.
func NormalizeSalt(salt string) common.Hash {
	if has0xPrefix(salt) && len(salt) == 2+2*common.HashLength && isHex(salt[2:]) {
		return common.HexToHash(salt)
	}

	return crypto.Keccak256Hash([]byte(salt))
}

// Address is the standalone deterministic address query: it appends the
// ABI-encoded constructor arguments (if any) to the creation bytecode,
// normalizes the salt, and computes the CREATE2 address. ctorTypes uses
// Solidity type names ("address", "uint256", ...).
func Address(factoryAddress common.Address, salt string, bytecode []byte, ctorTypes []string, ctorArgs []any) (common.Address, error) {
	if len(ctorTypes) != len(ctorArgs) {
		return common.Address{}, fmt.Errorf("constructor types/args length mismatch: %d vs %d", len(ctorTypes), len(ctorArgs))
	}

	initCode := bytecode
	if len(ctorTypes) > 0 {
		arguments, err := abiargs.Parse(ctorTypes)
		if err != nil {
			return common.Address{}, fmt.Errorf("failed to parse constructor types: %w", err)
		}

		values, err := abiargs.Coerce(arguments, ctorArgs)
		if err != nil {
			return common.Address{}, fmt.Errorf("failed to coerce constructor args: %w", err)
		}

		encoded, err := arguments.Pack(values...)
		if err != nil {
			return common.Address{}, fmt.Errorf("failed to encode constructor args: %w", err)
		}

		initCode = append(append([]byte{}, bytecode...), encoded...)
	}

	return ComputeAddress(factoryAddress, NormalizeSalt(salt), initCode), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		if !isHexCharacter(byte(c)) {
			return false
		}
	}
	return true
}

func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
