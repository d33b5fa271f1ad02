package proxies

import "errors"

// ErrBeaconProxyUnsupported is returned when a beacon proxy deployment is
// requested. The beacon protocol needs a shared registry contract this
// deployer does not manage, so the request fails before any transaction is
// submitted. Callers can branch on it with errors.Is.
var ErrBeaconProxyUnsupported = errors.New("beacon proxy deployment is not supported")
