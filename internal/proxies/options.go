package proxies

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/proxy-deployer/internal/domain"
)

// defaultInitializer is the function called on the implementation through
// the proxy right after creation, unless the caller picks another one.
const defaultInitializer = "initialize"

// UnsafeAllow identifies a validator check the caller wants suppressed. The
// set is forwarded verbatim to the external safety validator; this package
// only rejects identifiers outside the recognized set.
type UnsafeAllow string

const (
	UnsafeAllowStateVariableAssignment UnsafeAllow = "state-variable-assignment"
	UnsafeAllowStateVariableImmutable  UnsafeAllow = "state-variable-immutable"
	UnsafeAllowExternalLibraryLinking  UnsafeAllow = "external-library-linking"
	UnsafeAllowStructDefinition        UnsafeAllow = "struct-definition"
	UnsafeAllowEnumDefinition          UnsafeAllow = "enum-definition"
	UnsafeAllowConstructor             UnsafeAllow = "constructor"
	UnsafeAllowDelegatecall            UnsafeAllow = "delegatecall"
	UnsafeAllowSelfdestruct            UnsafeAllow = "selfdestruct"
	UnsafeAllowMissingPublicUpgradeTo  UnsafeAllow = "missing-public-upgradeto"
)

var recognizedUnsafeAllows = map[UnsafeAllow]struct{}{
	UnsafeAllowStateVariableAssignment: {},
	UnsafeAllowStateVariableImmutable:  {},
	UnsafeAllowExternalLibraryLinking:  {},
	UnsafeAllowStructDefinition:        {},
	UnsafeAllowEnumDefinition:          {},
	UnsafeAllowConstructor:             {},
	UnsafeAllowDelegatecall:            {},
	UnsafeAllowSelfdestruct:            {},
	UnsafeAllowMissingPublicUpgradeTo:  {},
}

// DeployOptions configures a single proxy deployment.
type DeployOptions struct {
	// Kind selects the proxy protocol. Empty picks transparent, or uups
	// when deterministic deployment is enabled.
	Kind domain.ProxyKind

	// Initializer names the function to call through the proxy after
	// creation. Empty means the default "initialize". DisableInitializer
	// skips the call entirely.
	Initializer        string
	DisableInitializer bool

	// UnsafeAllow is forwarded to the external safety validator.
	UnsafeAllow []UnsafeAllow

	// DeployFactory and DeployFactorySalt enable deterministic CREATE2
	// deployment of both the implementation and the proxy through the
	// factory at this address.
	DeployFactory     *common.Address
	DeployFactorySalt string
}

// Validate rejects unrecognized option values before any work starts.
func (o DeployOptions) Validate() error {
	var errs []error

	if _, err := domain.ParseProxyKind(string(o.Kind)); err != nil {
		errs = append(errs, err)
	}

	for _, identifier := range o.UnsafeAllow {
		if _, ok := recognizedUnsafeAllows[identifier]; !ok {
			errs = append(errs, fmt.Errorf("unrecognized unsafeAllow identifier: %q", identifier))
		}
	}

	if o.DeployFactorySalt != "" && o.DeployFactory == nil {
		errs = append(errs, errors.New("deploy-factory-salt requires a deploy factory"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid deploy options: %w", errors.Join(errs...))
	}

	return nil
}

// resolveKind applies the kind defaults: explicit choice wins, the
// deterministic path defaults to uups, everything else to transparent.
func (o DeployOptions) resolveKind() domain.ProxyKind {
	if o.Kind != "" {
		return o.Kind
	}
	if o.deterministic() {
		return domain.ProxyKindUUPS
	}

	return domain.ProxyKindTransparent
}

func (o DeployOptions) deterministic() bool {
	return o.DeployFactory != nil
}

func (o DeployOptions) initializerName() string {
	if o.DisableInitializer {
		return ""
	}
	if o.Initializer == "" {
		return defaultInitializer
	}

	return o.Initializer
}
