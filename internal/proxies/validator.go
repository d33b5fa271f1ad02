package proxies

import (
	"context"

	"github.com/compose-network/proxy-deployer/internal/domain"
)

// Validator is the external static safety validator inspecting an
// implementation for upgrade-incompatible patterns (constructors,
// selfdestruct, delegatecall, storage layout changes). The unsafeAllow set
// is passed through verbatim; the deployer neither interprets nor filters
// it. A nil Validator skips validation.
type Validator interface {
	ValidateUpgradeSafety(ctx context.Context, implementation domain.Artifact, unsafeAllow []UnsafeAllow) error
}
