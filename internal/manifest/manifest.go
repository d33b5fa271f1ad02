package manifest

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/proxy-deployer/internal/domain"
)

// Version is the current manifest schema version.
const Version = 1

// Manifest is the per-network record of deployed shared infrastructure and
// every provisioned proxy. Entries are appended, never mutated.
type Manifest struct {
	Version   int    `json:"version"`
	NetworkID uint64 `json:"networkId"`

	// Admin is the single ProxyAdmin owning all transparent proxies on
	// this network, or nil if none has been deployed yet.
	Admin *domain.Deployment `json:"admin,omitempty"`

	// Implementations maps the keccak256 hash of creation bytecode to the
	// deployment of that bytecode, so identical implementations are reused.
	Implementations map[common.Hash]domain.Deployment `json:"implementations"`

	// Proxies lists every provisioned proxy in deployment order.
	Proxies []domain.ProxyDeployment `json:"proxies"`
}

func newManifest(networkID uint64) *Manifest {
	return &Manifest{
		Version:         Version,
		NetworkID:       networkID,
		Implementations: make(map[common.Hash]domain.Deployment),
	}
}

// HasAdmin reports whether an admin contract has been recorded.
func (m *Manifest) HasAdmin() bool {
	return m.Admin != nil
}

func (m *Manifest) appendProxy(proxy domain.ProxyDeployment) error {
	for _, existing := range m.Proxies {
		if existing.Address == proxy.Address {
			return fmt.Errorf("proxy already recorded at %s", proxy.Address.Hex())
		}
	}

	m.Proxies = append(m.Proxies, proxy)

	return nil
}
