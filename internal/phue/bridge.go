// Package phue is a stateful client for the Philips Hue bridge v1 REST API.
// It discovers a bridge on the local network, pairs with it once, and keeps
// an in-memory mirror of the bridge's lights, groups and scenes so callers
// work with typed entities instead of raw HTTP calls.
package phue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/huelab/phuectl/internal/store"
)

const (
	apiRoot             = "/api"
	defaultTimeout      = 2 * time.Second
	defaultDiscoveryURL = "https://discovery.meethue.com/"
)

// requester is the capability entities use to reach the bridge. Entities
// never own the session, they only borrow it for outgoing requests.
type requester interface {
	SendAuthenticatedRequest(ctx context.Context, path, method string, data any, silent bool) ([]byte, error)
}

// Options configures a Bridge.
type Options struct {
	// IP is the bridge address. Leave empty to rely on a stored pairing or
	// on autodiscovery.
	IP string

	// DeviceName identifies this client to the bridge during registration.
	// A random one is generated when empty.
	DeviceName string

	// Username is the credential issued by the bridge. Usually left empty
	// and recovered from the Store or obtained via Register.
	Username string

	// Store persists the {ip, username} pairing. Optional.
	Store store.Store

	// Timeout bounds every HTTP call. Defaults to 2 seconds.
	Timeout time.Duration

	// RateLimitRPS throttles outgoing bridge requests when > 0. The bridge
	// itself starts dropping commands around 10 rps.
	RateLimitRPS float64

	// DiscoveryURL overrides the N-UPnP discovery endpoint.
	DiscoveryURL string
}

// Bridge owns the connection to a single Hue bridge: its address, the
// registration credential and the entity registry loaded from it.
// A Bridge is not safe for concurrent use; callers serialize access.
type Bridge struct {
	ip         string
	deviceName string
	username   string
	connected  bool

	httpClient   *http.Client
	limiter      *rate.Limiter
	store        store.Store
	discoveryURL string

	// Overridable in tests, defaults to a real mDNS query.
	mdnsLookup func(ctx context.Context) ([]string, error)

	registry registry
}

// New creates a Bridge. A pairing previously saved to opts.Store is picked
// up unless it conflicts with an explicitly supplied ip or username, in
// which case the stored pairing is discarded as stale.
func New(opts Options) *Bridge {
	if opts.DeviceName == "" {
		opts.DeviceName = "phuectl-" + uuid.NewString()[:8]
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.DiscoveryURL == "" {
		opts.DiscoveryURL = defaultDiscoveryURL
	}

	b := &Bridge{
		ip:           opts.IP,
		deviceName:   opts.DeviceName,
		username:     opts.Username,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		store:        opts.Store,
		discoveryURL: opts.DiscoveryURL,
		mdnsLookup:   mdnsDiscover,
		registry:     newRegistry(),
	}
	if opts.RateLimitRPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	b.adoptStoredPairing(opts)
	return b
}

func (b *Bridge) adoptStoredPairing(opts Options) {
	if b.store == nil {
		return
	}
	creds, err := b.store.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load stored bridge pairing")
		return
	}
	if creds == nil {
		return
	}

	if (opts.IP != "" && opts.IP != creds.IP) ||
		(opts.Username != "" && opts.Username != creds.Username) {
		// Pairing from a different bridge or account, drop it.
		log.Info().Msg("Stored bridge pairing is stale, discarding")
		if err := b.store.Clear(); err != nil {
			log.Error().Err(err).Msg("Failed to clear stale bridge pairing")
		}
		return
	}

	if b.ip == "" {
		b.ip = creds.IP
	}
	if b.username == "" {
		b.username = creds.Username
	}
}

func (b *Bridge) savePairing() {
	if b.store == nil {
		return
	}
	err := b.store.Save(&store.Credentials{IP: b.ip, Username: b.username})
	if err != nil {
		log.Error().Err(err).Msg("Failed to save bridge pairing")
	}
}

// IP returns the bridge address, empty until configured or discovered.
func (b *Bridge) IP() string { return b.ip }

// Username returns the credential issued by the bridge, empty until
// registered.
func (b *Bridge) Username() string { return b.username }

// DeviceName returns the label this client registers under.
func (b *Bridge) DeviceName() string { return b.deviceName }

// Connected reports whether an authenticated probe has succeeded.
func (b *Bridge) Connected() bool { return b.connected }

// Connect drives the session to the authenticated state: discover the
// bridge when no address is known, then probe it with the stored username.
// Network-level failures come back wrapped in ErrConnectionFailed and may
// be retried; ErrNoIP, ErrNoBridgeFound and ErrUnauthorized are terminal
// until the caller supplies new input (an address, or a Register round).
// A failure while loading devices after the probe is logged but does not
// fail Connect.
func (b *Bridge) Connect(ctx context.Context, autodiscover bool) error {
	if b.ip == "" {
		if !autodiscover {
			return ErrNoIP
		}
		if err := b.Autodiscover(ctx); err != nil {
			return err
		}
	}

	if b.username == "" {
		return ErrUnauthorized
	}

	body, err := b.SendRequest(ctx, "/"+b.username, http.MethodGet, nil, false)
	if err != nil {
		log.Error().Err(err).Str("ip", b.ip).Msg("Bridge connection error")
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		log.Error().Err(err).Str("ip", b.ip).Msg("Unreadable answer from bridge")
		return fmt.Errorf("%w: decoding probe answer: %v", ErrConnectionFailed, err)
	}
	if errorReturned(body) {
		return ErrUnauthorized
	}

	b.connected = true
	log.Info().Str("ip", b.ip).Msg("Connected to Hue bridge")

	b.LoadDevices(ctx)
	return nil
}

// Register pairs this client with the bridge. The bridge refuses with an
// error envelope until its physical link button is pressed, which is
// surfaced as ErrLinkButtonNotPressed so the caller can prompt the user
// and retry. On success the issued username is adopted and persisted.
func (b *Bridge) Register(ctx context.Context) error {
	payload := map[string]string{"devicetype": "phuectl#" + b.deviceName}
	body, err := b.SendRequest(ctx, "", http.MethodPost, payload, false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	if errorReturned(body) {
		return ErrLinkButtonNotPressed
	}
	if !successReturned(body) {
		return fmt.Errorf("%w: unsupported answer from bridge", ErrRegistrationFailed)
	}

	results := parseResults(body)
	raw, ok := results[0].Success["username"]
	if !ok {
		return fmt.Errorf("%w: no username in bridge answer", ErrRegistrationFailed)
	}
	var username string
	if err := json.Unmarshal(raw, &username); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	b.username = username
	b.savePairing()
	log.Info().Str("ip", b.ip).Msg("Registered on Hue bridge")
	return nil
}

// SendRequest issues an unauthenticated HTTP call against the bridge. The
// path is prefixed with /api when missing. A transport failure on a silent
// request yields (nil, nil) and the caller must treat it as a no-op;
// otherwise it is wrapped in ErrRequestFailed.
func (b *Bridge) SendRequest(ctx context.Context, path, method string, data any, silent bool) ([]byte, error) {
	if !strings.HasPrefix(path, apiRoot) {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path = apiRoot + path
	}

	var payload io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding body: %v", ErrRequestFailed, err)
		}
		payload = bytes.NewReader(raw)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+b.ip+path, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if silent {
			log.Debug().Err(err).Str("path", path).Msg("Silent bridge request failed")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if silent {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return body, nil
}

// SendAuthenticatedRequest embeds the username as the leading path segment
// and delegates to SendRequest.
func (b *Bridge) SendAuthenticatedRequest(ctx context.Context, path, method string, data any, silent bool) ([]byte, error) {
	if !strings.Contains(path, b.username) {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path = "/" + b.username + path
	}
	return b.SendRequest(ctx, path, method, data, silent)
}

var groupTypes = map[string]bool{
	"LightGroup":    true,
	"Room":          true,
	"Luminaire":     true,
	"LightSource":   true,
	"Zone":          true,
	"Entertainment": true,
}

// CreateGroup creates a group on the bridge. An unknown groupType falls
// back to LightGroup. The class is only sent for Room groups and defaults
// to "Other".
func (b *Bridge) CreateGroup(ctx context.Context, name string, lights []string, groupType, class string) error {
	if !groupTypes[groupType] {
		groupType = "LightGroup"
	}

	payload := map[string]any{
		"lights": lights,
		"name":   name,
		"type":   groupType,
	}
	if groupType == "Room" {
		if class == "" {
			class = "Other"
		}
		payload["class"] = class
	}

	_, err := b.SendAuthenticatedRequest(ctx, "/groups", http.MethodPost, payload, false)
	return err
}
