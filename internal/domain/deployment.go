package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type (
	// Deployment records a single on-chain contract creation. It is
	// immutable once written.
	Deployment struct {
		Address common.Address `json:"address"`
		TxHash  common.Hash    `json:"txHash"`

		// Transaction is the live handle for the creation transaction.
		// It is only populated on the call that performed the deployment
		// and is never persisted.
		Transaction *types.Transaction `json:"-"`
	}

	// ProxyDeployment is a Deployment of a proxy contract, tagged with the
	// proxy protocol and the infrastructure it points at.
	ProxyDeployment struct {
		Deployment

		Kind           ProxyKind      `json:"kind"`
		Implementation common.Address `json:"implementation"`

		// Admin is set for transparent proxies only.
		Admin *common.Address `json:"admin,omitempty"`
	}
)
