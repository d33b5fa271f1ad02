package proxies

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/compose-network/proxy-deployer/internal/create2"
	"github.com/compose-network/proxy-deployer/internal/domain"
	"github.com/compose-network/proxy-deployer/internal/ethtest"
	"github.com/compose-network/proxy-deployer/internal/manifest"
)

var testChainID = big.NewInt(1337)

const (
	implementationABI = `[{"type":"function","name":"initialize","inputs":[{"name":"value","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}]`
	proxyAdminABI     = `[]`
	transparentABI    = `[{"type":"constructor","inputs":[{"name":"_logic","type":"address"},{"name":"admin_","type":"address"},{"name":"_data","type":"bytes"}],"stateMutability":"payable"}]`
	erc1967ABI        = `[{"type":"constructor","inputs":[{"name":"_logic","type":"address"},{"name":"_data","type":"bytes"}],"stateMutability":"payable"}]`
)

func mustABI(t *testing.T, raw string) abi.ABI {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(raw))
	require.NoError(t, err)

	return parsed
}

func testArtifacts(t *testing.T) Artifacts {
	t.Helper()

	return Artifacts{
		ProxyAdmin: domain.Artifact{
			Name:     proxyAdminName,
			ABI:      mustABI(t, proxyAdminABI),
			Bytecode: []byte{0xad, 0x01},
		},
		Transparent: domain.Artifact{
			Name:     transparentProxyName,
			ABI:      mustABI(t, transparentABI),
			Bytecode: []byte{0x70, 0x01},
		},
		ERC1967: domain.Artifact{
			Name:     erc1967ProxyName,
			ABI:      mustABI(t, erc1967ABI),
			Bytecode: []byte{0x19, 0x67},
		},
	}
}

func testImplementation(t *testing.T) domain.Artifact {
	t.Helper()

	return domain.Artifact{
		Name:     "Counter",
		ABI:      mustABI(t, implementationABI),
		Bytecode: []byte{0xc0, 0x01, 0x60, 0x80},
	}
}

// warnRecorder collects Warn-level log records so tests can assert on
// advisory warnings.
type warnRecorder struct {
	mu    sync.Mutex
	warns []string
}

func (r *warnRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *warnRecorder) Handle(_ context.Context, record slog.Record) error {
	if record.Level == slog.LevelWarn {
		r.mu.Lock()
		r.warns = append(r.warns, record.Message)
		r.mu.Unlock()
	}
	return nil
}

func (r *warnRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *warnRecorder) WithGroup(string) slog.Handler      { return r }

func (r *warnRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warns)
}

func newTestDeployer(t *testing.T) (*Deployer, *ethtest.Backend, *manifest.Store, *warnRecorder) {
	t.Helper()

	recorder := &warnRecorder{}
	slog.SetDefault(slog.New(recorder))

	backend := ethtest.NewBackend(testChainID)
	auth := ethtest.NewTransactor(t, testChainID)
	store := manifest.NewStore(t.TempDir(), testChainID.Uint64())
	deployer := NewDeployer(backend, auth, store, testArtifacts(t), nil)

	return deployer, backend, store, recorder
}

func TestDeployProxyTransparent(t *testing.T) {
	deployer, backend, store, _ := newTestDeployer(t)
	ctx := context.Background()

	proxy, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(7)}, DeployOptions{})
	require.NoError(t, err)
	require.Equal(t, domain.ProxyKindTransparent, proxy.Kind)
	require.NotNil(t, proxy.Contract)
	require.NotNil(t, proxy.Deployment.Admin)

	// implementation + admin + proxy
	require.Equal(t, 3, backend.SentCount())

	m, err := store.Read(ctx)
	require.NoError(t, err)
	require.True(t, m.HasAdmin())
	require.Equal(t, m.Admin.Address, *proxy.Deployment.Admin)
	require.Len(t, m.Proxies, 1)
	require.Len(t, m.Implementations, 1)
	require.Equal(t, proxy.Address, m.Proxies[0].Address)
}

func TestBeaconKindFailsBeforeAnyTransaction(t *testing.T) {
	deployer, backend, _, _ := newTestDeployer(t)

	_, err := deployer.DeployProxy(context.Background(), testImplementation(t), nil, DeployOptions{
		Kind: domain.ProxyKindBeacon,
	})
	require.ErrorIs(t, err, ErrBeaconProxyUnsupported)
	require.Equal(t, 0, backend.SentCount())

	// Other options do not change the outcome.
	factory := common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")
	_, err = deployer.DeployProxy(context.Background(), testImplementation(t), nil, DeployOptions{
		Kind:              domain.ProxyKindBeacon,
		DeployFactory:     &factory,
		DeployFactorySalt: "salted",
		UnsafeAllow:       []UnsafeAllow{UnsafeAllowConstructor},
	})
	require.ErrorIs(t, err, ErrBeaconProxyUnsupported)
	require.Equal(t, 0, backend.SentCount())
}

func TestUUPSWithExistingAdminWarns(t *testing.T) {
	deployer, _, store, recorder := newTestDeployer(t)
	ctx := context.Background()

	// Seed the admin with a transparent deployment.
	_, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(1)}, DeployOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, recorder.count())

	proxy, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(2)}, DeployOptions{
		Kind: domain.ProxyKindUUPS,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProxyKindUUPS, proxy.Kind)
	require.Nil(t, proxy.Deployment.Admin)
	require.Equal(t, 1, recorder.count(), "exactly one warning expected")

	// The admin stays reusable for future transparent proxies.
	m, err := store.Read(ctx)
	require.NoError(t, err)
	require.True(t, m.HasAdmin())

	next, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(3)}, DeployOptions{})
	require.NoError(t, err)
	require.Equal(t, m.Admin.Address, *next.Deployment.Admin)
}

func TestImplementationReuse(t *testing.T) {
	deployer, _, store, _ := newTestDeployer(t)
	ctx := context.Background()

	first, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(1)}, DeployOptions{})
	require.NoError(t, err)

	second, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(2)}, DeployOptions{})
	require.NoError(t, err)

	require.NotEqual(t, first.Address, second.Address, "two distinct proxies")
	require.Equal(t, first.Deployment.Implementation, second.Deployment.Implementation, "one shared implementation")

	m, err := store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, m.Implementations, 1)
	require.Len(t, m.Proxies, 2)
}

func TestSingleAdminUnderConcurrentDeployments(t *testing.T) {
	recorder := &warnRecorder{}
	slog.SetDefault(slog.New(recorder))

	backend := ethtest.NewBackend(testChainID)
	dir := t.TempDir()
	ctx := context.Background()

	const callers = 6
	proxies := make([]*Proxy, callers)

	var group errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		auth := ethtest.NewTransactor(t, testChainID)
		group.Go(func() error {
			// Each caller has its own signer and its own manifest handle,
			// like separate invocations of the tool.
			store := manifest.NewStore(dir, testChainID.Uint64())
			deployer := NewDeployer(backend, auth, store, testArtifacts(t), nil)

			proxy, err := deployer.DeployProxy(ctx, testImplementation(t), []any{big.NewInt(int64(i))}, DeployOptions{})
			if err != nil {
				return err
			}
			proxies[i] = proxy
			return nil
		})
	}
	require.NoError(t, group.Wait())

	store := manifest.NewStore(dir, testChainID.Uint64())
	m, err := store.Read(ctx)
	require.NoError(t, err)
	require.True(t, m.HasAdmin())
	require.Len(t, m.Proxies, callers)
	require.Len(t, m.Implementations, 1, "implementation deployed once")

	for _, proxy := range proxies {
		require.NotNil(t, proxy.Deployment.Admin)
		require.Equal(t, m.Admin.Address, *proxy.Deployment.Admin, "every proxy references the single admin")
	}
}

func TestDeterministicDeployment(t *testing.T) {
	deployer, backend, store, _ := newTestDeployer(t)
	ctx := context.Background()

	factory := common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")
	backend.RegisterCreate2Factory(factory)

	impl := testImplementation(t)
	opts := DeployOptions{
		DeployFactory:     &factory,
		DeployFactorySalt: "release-1",
	}

	proxy, err := deployer.DeployProxy(ctx, impl, []any{big.NewInt(9)}, opts)
	require.NoError(t, err)

	// The deterministic path defaults the kind to uups.
	require.Equal(t, domain.ProxyKindUUPS, proxy.Kind)

	salt := create2.NormalizeSalt(opts.DeployFactorySalt)

	// The implementation landed at its predicted address.
	m, err := store.Read(ctx)
	require.NoError(t, err)
	implDeployment, ok := m.Implementations[impl.BytecodeHash()]
	require.True(t, ok)
	require.Equal(t, create2.ComputeAddress(factory, salt, impl.Bytecode), implDeployment.Address)

	// Recomputing the proxy address from the same arguments yields the
	// address actually used on-chain.
	initData, err := impl.ABI.Pack("initialize", big.NewInt(9))
	require.NoError(t, err)

	artifacts := testArtifacts(t)
	encodedArgs, err := artifacts.ERC1967.ABI.Pack("", implDeployment.Address, initData)
	require.NoError(t, err)

	initCode := append(append([]byte{}, artifacts.ERC1967.Bytecode...), encodedArgs...)
	require.Equal(t, create2.ComputeAddress(factory, salt, initCode), proxy.Address)
}

type recordingValidator struct {
	calls       int
	unsafeAllow []UnsafeAllow
	err         error
}

func (v *recordingValidator) ValidateUpgradeSafety(_ context.Context, _ domain.Artifact, unsafeAllow []UnsafeAllow) error {
	v.calls++
	v.unsafeAllow = unsafeAllow
	return v.err
}

func TestValidatorReceivesUnsafeAllowVerbatim(t *testing.T) {
	_, backend, store, _ := newTestDeployer(t)
	auth := ethtest.NewTransactor(t, testChainID)

	validator := &recordingValidator{}
	deployer := NewDeployer(backend, auth, store, testArtifacts(t), validator)

	allowed := []UnsafeAllow{UnsafeAllowConstructor, UnsafeAllowDelegatecall}
	_, err := deployer.DeployProxy(context.Background(), testImplementation(t), []any{big.NewInt(1)}, DeployOptions{
		UnsafeAllow: allowed,
	})
	require.NoError(t, err)
	require.Equal(t, 1, validator.calls)
	require.Equal(t, allowed, validator.unsafeAllow)
}

func TestValidatorFailureStopsDeployment(t *testing.T) {
	_, backend, store, _ := newTestDeployer(t)
	auth := ethtest.NewTransactor(t, testChainID)

	validator := &recordingValidator{err: context.DeadlineExceeded}
	deployer := NewDeployer(backend, auth, store, testArtifacts(t), validator)

	_, err := deployer.DeployProxy(context.Background(), testImplementation(t), nil, DeployOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, backend.SentCount())
}
