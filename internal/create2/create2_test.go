package create2

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestComputeAddressMatchesOpcodeReference(t *testing.T) {
	cases := []struct {
		name     string
		factory  common.Address
		salt     common.Hash
		initCode []byte
	}{
		{
			name:     "all ones factory, trivial bytecode",
			factory:  common.HexToAddress("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"),
			salt:     crypto.Keccak256Hash([]byte("test")),
			initCode: []byte{0x00},
		},
		{
			name:     "zero factory, zero salt",
			factory:  common.Address{},
			salt:     common.Hash{},
			initCode: []byte{0x60, 0x80, 0x60, 0x40},
		},
		{
			name:     "well-known deterministic factory",
			factory:  common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C"),
			salt:     common.HexToHash("0x01"),
			initCode: common.FromHex("0x608060405234801561001057600080fd5b50"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := crypto.CreateAddress2(tc.factory, tc.salt, crypto.Keccak256(tc.initCode))
			got := ComputeAddress(tc.factory, tc.salt, tc.initCode)
			require.Equal(t, want, got)
		})
	}
}

func TestComputeAddressKnownVectors(t *testing.T) {
	// factory 0xFF..FF, salt "test" (hash-normalized), init code 0x00
	got := ComputeAddress(
		common.HexToAddress("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"),
		NormalizeSalt("test"),
		[]byte{0x00},
	)
	require.Equal(t, common.HexToAddress("0xD7d6D693b6157E4C97043419813a2ED43A8dface"), got)

	// deterministic deployment proxy, zero salt, init code 0x6080
	got = ComputeAddress(
		common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C"),
		common.Hash{},
		[]byte{0x60, 0x80},
	)
	require.Equal(t, common.HexToAddress("0x716d32A5431e16117F60b623Aa94DD0B65812382"), got)
}

func TestComputeAddressIsDeterministic(t *testing.T) {
	factory := common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")
	salt := NormalizeSalt("my-proxy")
	initCode := common.FromHex("0x6080604052")

	first := ComputeAddress(factory, salt, initCode)
	for n := 0; n < 10; n++ {
		require.Equal(t, first, ComputeAddress(factory, salt, initCode))
	}
}

func TestNormalizeSalt(t *testing.T) {
	t.Run("raw 32-byte hex passes through", func(t *testing.T) {
		raw := "0x00000000000000000000000000000000000000000000000000000000000000ff"
		require.Equal(t, common.HexToHash(raw), NormalizeSalt(raw))
	})

	t.Run("strings are keccak hashed", func(t *testing.T) {
		require.Equal(t,
			common.HexToHash("0x9c22ff5f21f0b81b113e63f7db6da94fedef11b2119b4088b89664fb9a3cb658"),
			NormalizeSalt("test"),
		)
	})

	t.Run("numeric strings are hashed like any other string", func(t *testing.T) {
		require.Equal(t, crypto.Keccak256Hash([]byte("42")), NormalizeSalt("42"))
	})

	t.Run("short hex strings are hashed", func(t *testing.T) {
		require.Equal(t, crypto.Keccak256Hash([]byte("0xff")), NormalizeSalt("0xff"))
	})
}

func TestAddress(t *testing.T) {
	factory := common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")
	bytecode := common.FromHex("0x6080604052")

	t.Run("no constructor args equals plain computation", func(t *testing.T) {
		got, err := Address(factory, "test", bytecode, nil, nil)
		require.NoError(t, err)
		require.Equal(t, ComputeAddress(factory, NormalizeSalt("test"), bytecode), got)
	})

	t.Run("constructor args change the address", func(t *testing.T) {
		withArgs, err := Address(factory, "test", bytecode,
			[]string{"address", "uint256"},
			[]any{"0x00000000000000000000000000000000000000aa", "7"},
		)
		require.NoError(t, err)

		plain, err := Address(factory, "test", bytecode, nil, nil)
		require.NoError(t, err)
		require.NotEqual(t, plain, withArgs)

		otherArgs, err := Address(factory, "test", bytecode,
			[]string{"address", "uint256"},
			[]any{"0x00000000000000000000000000000000000000aa", "8"},
		)
		require.NoError(t, err)
		require.NotEqual(t, withArgs, otherArgs)
	})

	t.Run("mismatched types and args fail", func(t *testing.T) {
		_, err := Address(factory, "test", bytecode, []string{"address"}, nil)
		require.Error(t, err)
	})

	t.Run("invalid type name fails", func(t *testing.T) {
		_, err := Address(factory, "test", bytecode, []string{"uint257"}, []any{"1"})
		require.Error(t, err)
	})
}
