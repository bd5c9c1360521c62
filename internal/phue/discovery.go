package phue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

const mdnsService = "_hue._tcp"

// Autodiscover locates a bridge without prior configuration. It first asks
// the vendor's N-UPnP discovery endpoint for candidates on the local
// network and probes each one; when the endpoint is unreachable it falls
// back to an mDNS query for _hue._tcp. Transport and parse failures along
// the way are logged and swallowed, only exhaustion of all candidates
// raises ErrNoBridgeFound. The first confirmed candidate becomes the
// bridge address and the pairing is persisted.
func (b *Bridge) Autodiscover(ctx context.Context) error {
	log.Info().Msg("Trying to autodiscover the bridge on the network")

	candidates, err := b.discoverCloud(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Cloud discovery failed, falling back to mDNS")
		candidates, err = b.mdnsLookup(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("mDNS discovery failed")
		}
	}

	for _, ip := range candidates {
		log.Info().Str("candidate", ip).Msg("Probing discovery candidate")
		if b.isBridge(ctx, ip) {
			b.ip = ip
			b.savePairing()
			log.Info().Str("ip", ip).Msg("Found Hue bridge")
			return nil
		}
	}

	return ErrNoBridgeFound
}

// discoverCloud queries the N-UPnP endpoint for bridges that recently
// phoned home from this network.
func (b *Bridge) discoverCloud(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.discoveryURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var devices []discoveryCandidate
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		return nil, err
	}
	log.Info().Int("count", len(devices)).Msg("Obtained a list of potential bridges")

	ips := make([]string, 0, len(devices))
	for _, device := range devices {
		if device.InternalIPAddress != "" {
			ips = append(ips, device.InternalIPAddress)
		}
	}
	return ips, nil
}

// isBridge probes the unauthenticated config endpoint of a candidate and
// accepts it when the answer carries both a firmware version and a bridge
// id. Any failure just disqualifies the candidate.
func (b *Bridge) isBridge(ctx context.Context, ip string) bool {
	if ip == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/config", ip), nil)
	if err != nil {
		return false
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var data map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return false
	}

	_, hasVersion := data["swversion"]
	_, hasBridgeID := data["bridgeid"]
	return hasVersion && hasBridgeID
}

// mdnsDiscover queries the local network for bridges advertising the Hue
// mDNS service.
func mdnsDiscover(ctx context.Context) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)

	params := mdns.DefaultParams(mdnsService)
	params.Entries = entries
	params.DisableIPv6 = true
	params.Timeout = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		defer close(entries)
		done <- mdns.QueryContext(ctx, params)
	}()

	var ips []string
	for entry := range entries {
		if entry.AddrV4 != nil {
			ips = append(ips, entry.AddrV4.String())
		}
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return ips, nil
}
