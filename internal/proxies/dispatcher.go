package proxies

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/proxy-deployer/internal/domain"
)

// creationPlan is the outcome of proxy kind dispatch: which proxy contract
// to create and with which constructor arguments.
type creationPlan struct {
	artifact domain.Artifact
	args     []any
	admin    *common.Address
}

// planCreation selects the deployment protocol for the resolved kind. The
// switch is exhaustive over domain.ProxyKinds; an unlisted kind cannot fall
// through silently.
func (d *Deployer) planCreation(ctx context.Context, kind domain.ProxyKind, implementation common.Address, initData []byte) (creationPlan, error) {
	switch kind {
	case domain.ProxyKindTransparent:
		admin, err := d.store.FetchOrDeployAdmin(ctx, func(ctx context.Context) (domain.Deployment, error) {
			return d.executor.Deploy(ctx, d.artifacts.ProxyAdmin)
		})
		if err != nil {
			return creationPlan{}, err
		}

		return creationPlan{
			artifact: d.artifacts.Transparent,
			args:     []any{implementation, admin.Address, initData},
			admin:    &admin.Address,
		}, nil

	case domain.ProxyKindUUPS:
		current, err := d.store.Read(ctx)
		if err != nil {
			return creationPlan{}, err
		}
		if current.HasAdmin() {
			// Advisory only: uups proxies are never administered by the
			// ProxyAdmin, and the admin stays available for future
			// transparent proxies.
			d.logger.
				With("admin", current.Admin.Address.Hex()).
				Warn("network has a proxy admin, but uups proxies upgrade through their implementation")
		}

		return creationPlan{
			artifact: d.artifacts.ERC1967,
			args:     []any{implementation, initData},
		}, nil

	case domain.ProxyKindBeacon:
		return creationPlan{}, ErrBeaconProxyUnsupported

	default:
		return creationPlan{}, fmt.Errorf("unknown proxy kind: %q", kind)
	}
}
