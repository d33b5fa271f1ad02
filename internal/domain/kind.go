package domain

import "fmt"

// ProxyKind selects the proxy deployment protocol.
type ProxyKind string

const (
	// ProxyKindTransparent proxies are upgraded through a separate
	// ProxyAdmin contract shared by every transparent proxy on the network.
	ProxyKindTransparent ProxyKind = "transparent"

	// ProxyKindUUPS proxies carry their upgrade entry point in the
	// implementation contract itself.
	ProxyKindUUPS ProxyKind = "uups"

	// ProxyKindBeacon proxies resolve their implementation through a shared
	// beacon registry. Deployment of this kind is not supported.
	ProxyKindBeacon ProxyKind = "beacon"
)

// ProxyKinds lists every recognized kind. The dispatcher switches over all
// of them; a new kind must be added here and handled there.
var ProxyKinds = []ProxyKind{ProxyKindTransparent, ProxyKindUUPS, ProxyKindBeacon}

// ParseProxyKind converts a textual kind into a ProxyKind, rejecting
// anything outside the recognized set. An empty string is allowed and means
// "let the deployer pick the default".
func ParseProxyKind(kind string) (ProxyKind, error) {
	switch ProxyKind(kind) {
	case ProxyKindTransparent, ProxyKindUUPS, ProxyKindBeacon, "":
		return ProxyKind(kind), nil
	default:
		return "", fmt.Errorf("unknown proxy kind: %q", kind)
	}
}
