package phue

import "errors"

var (
	// ErrNoIP is returned by Connect when no bridge address is known and
	// autodiscovery was disabled.
	ErrNoIP = errors.New("no bridge ip known and autodiscovery disabled")

	// ErrNoBridgeFound is returned when discovery ran out of candidates.
	ErrNoBridgeFound = errors.New("no hue bridge found on the network")

	// ErrUnauthorized means the bridge has no username for this client or
	// rejected the one it was given. The caller must Register first.
	ErrUnauthorized = errors.New("bridge username missing or rejected")

	// ErrLinkButtonNotPressed is the expected registration failure before
	// the physical link button on the bridge has been pressed.
	ErrLinkButtonNotPressed = errors.New("bridge link button not pressed")

	// ErrRegistrationFailed covers any other registration malfunction.
	ErrRegistrationFailed = errors.New("bridge registration failed")

	// ErrConnectionFailed is a recoverable network-level connect failure.
	// The session stays unconnected and the caller may retry.
	ErrConnectionFailed = errors.New("bridge connection failed")

	// ErrRequestFailed is a transport-level failure on a non-silent request.
	ErrRequestFailed = errors.New("bridge request failed")

	// ErrSelectorMissing means a lookup was invoked with neither id nor name.
	ErrSelectorMissing = errors.New("lookup requires an id or a name")

	ErrNoSuchLight        = errors.New("no such light")
	ErrNoSuchGroup        = errors.New("no such group")
	ErrNoSuchScene        = errors.New("no such scene")
	ErrNoSuchSceneInGroup = errors.New("scene is not linked to this group")
	ErrNoSuchSceneInLight = errors.New("scene is not linked to this light")

	// ErrLightNotReachable is raised by light mutators before any network
	// call when the light is not reachable.
	ErrLightNotReachable = errors.New("light is not reachable")
)
