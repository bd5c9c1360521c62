package phue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// Light is a typed local mirror of a bridge-managed light. Mutators update
// the cached state optimistically and PUT only the changed field; there is
// no rollback when the request fails. Every mutator refuses to touch the
// network while the light is unreachable.
type Light struct {
	ID               int
	Name             string
	Type             string
	ModelID          string
	ManufacturerName string
	ProductName      string
	UniqueID         string
	SWVersion        string
	SWConfigID       string
	ProductID        string
	Capabilities     json.RawMessage
	Config           json.RawMessage
	State            LightState

	// MyScenes lists the ids of the LightScenes referencing this light.
	MyScenes []string

	bridge requester
}

func newLight(id int, data lightData, bridge requester) *Light {
	return &Light{
		ID:               id,
		Name:             strings.ToLower(data.Name),
		Type:             data.Type,
		ModelID:          data.ModelID,
		ManufacturerName: data.ManufacturerName,
		ProductName:      data.ProductName,
		UniqueID:         data.UniqueID,
		SWVersion:        data.SWVersion,
		SWConfigID:       data.SWConfigID,
		ProductID:        data.ProductID,
		Capabilities:     data.Capabilities,
		Config:           data.Config,
		State:            data.State,
		bridge:           bridge,
	}
}

func (l *Light) String() string {
	return fmt.Sprintf("light %d named %q of type %s", l.ID, l.Name, l.Type)
}

// IsOn reports the cached power state.
func (l *Light) IsOn() bool { return l.State.On }

// IsOff reports the inverse of the cached power state.
func (l *Light) IsOff() bool { return !l.State.On }

// Reachable reports whether the bridge can currently reach the light.
func (l *Light) Reachable() bool { return l.State.Reachable }

func (l *Light) request(ctx context.Context, path, method string, data any) error {
	if !l.State.Reachable || l.bridge == nil {
		return ErrLightNotReachable
	}
	_, err := l.bridge.SendAuthenticatedRequest(ctx, fmt.Sprintf("/lights/%d%s", l.ID, path), method, data, false)
	return err
}

func (l *Light) putState(ctx context.Context, data any) error {
	return l.request(ctx, "/state", http.MethodPut, data)
}

// On turns the light on. Only the on flag is sent, no other state changes.
func (l *Light) On(ctx context.Context) error {
	return l.putState(ctx, map[string]any{"on": true})
}

// Off turns the light off.
func (l *Light) Off(ctx context.Context) error {
	return l.putState(ctx, map[string]any{"on": false})
}

// SetBrightness clamps the value to [1, 254] and applies it. A value of 0
// turns the light off instead; no brightness is sent in that case but 0 is
// cached.
func (l *Light) SetBrightness(ctx context.Context, value int) error {
	if value == 0 {
		if err := l.Off(ctx); err != nil {
			return err
		}
		l.State.Bri = 0
		return nil
	}

	if !l.State.Reachable {
		return ErrLightNotReachable
	}
	value = clamp(value, 1, 254)
	l.State.Bri = value
	return l.putState(ctx, map[string]any{"bri": value})
}

// SetSaturation clamps the value to [1, 254] and applies it.
func (l *Light) SetSaturation(ctx context.Context, value int) error {
	if !l.State.Reachable {
		return ErrLightNotReachable
	}
	value = clamp(value, 1, 254)
	l.State.Sat = value
	return l.putState(ctx, map[string]any{"sat": value})
}

// SetHue clamps the value to [0, 65535] and applies it.
func (l *Light) SetHue(ctx context.Context, value int) error {
	if !l.State.Reachable {
		return ErrLightNotReachable
	}
	value = clamp(value, 0, 65535)
	l.State.Hue = value
	return l.putState(ctx, map[string]any{"hue": value})
}

// SetXY clamps each CIE coordinate to [0, 1] and applies them.
func (l *Light) SetXY(ctx context.Context, x, y float64) error {
	if !l.State.Reachable {
		return ErrLightNotReachable
	}
	xy := []float64{clampFloat(x, 0, 1), clampFloat(y, 0, 1)}
	l.State.XY = xy
	return l.putState(ctx, map[string]any{"xy": xy})
}

// SetMired applies a color temperature in mired.
func (l *Light) SetMired(ctx context.Context, value int) error {
	if !l.State.Reachable {
		return ErrLightNotReachable
	}
	l.State.Ct = value
	return l.putState(ctx, map[string]any{"ct": value})
}

// SetColormode applies one of the modes "hs", "xy" or "ct". An invalid
// mode is coerced to "ct" with a warning. Lights without color mode
// support are left untouched.
func (l *Light) SetColormode(ctx context.Context, mode string) error {
	if l.State.Colormode == "" {
		log.Warn().Int("id", l.ID).Str("light", l.Name).Msg("Light does not support color mode changes")
		return nil
	}

	if mode != "hs" && mode != "xy" && mode != "ct" {
		log.Warn().Str("mode", mode).Msg("Invalid color mode, allowed values are hs, xy and ct; using ct")
		mode = "ct"
	}

	if !l.State.Reachable {
		return ErrLightNotReachable
	}
	l.State.Colormode = mode
	return l.putState(ctx, map[string]any{"colormode": mode})
}

// Alert runs an alert effect on the light, "lselect" when none is given.
func (l *Light) Alert(ctx context.Context, alert string) error {
	if alert == "" {
		alert = "lselect"
	}
	return l.putState(ctx, map[string]any{"alert": alert})
}

// Effect runs a light effect, "colorloop" when none is given.
func (l *Light) Effect(ctx context.Context, effect string) error {
	if effect == "" {
		effect = "colorloop"
	}
	return l.putState(ctx, map[string]any{"effect": effect})
}

// ApplyScene recalls one of the light's scenes by id. The bridge has no
// per-light recall endpoint, so the scene is replayed through group 0 and
// touches every light the scene references. An id not linked to this
// light raises ErrNoSuchSceneInLight.
func (l *Light) ApplyScene(ctx context.Context, sceneID string) error {
	if sceneID == "" {
		return ErrSelectorMissing
	}
	if !l.State.Reachable || l.bridge == nil {
		return ErrLightNotReachable
	}
	if !slices.Contains(l.MyScenes, sceneID) {
		return ErrNoSuchSceneInLight
	}
	_, err := l.bridge.SendAuthenticatedRequest(ctx, "/groups/0/action", http.MethodPut, map[string]any{"scene": sceneID}, false)
	return err
}

// Configure applies a raw state document to the cached state, field by
// field, and optionally forwards it to the bridge in a single PUT. Unknown
// fields are ignored.
func (l *Light) Configure(ctx context.Context, data map[string]any, sendToBridge bool) error {
	for key, value := range data {
		l.applyStateField(key, value)
	}

	if !sendToBridge {
		return nil
	}
	return l.putState(ctx, data)
}

func (l *Light) applyStateField(key string, value any) {
	switch key {
	case "on":
		if v, ok := value.(bool); ok {
			l.State.On = v
		}
	case "bri":
		if v, ok := toInt(value); ok {
			l.State.Bri = v
		}
	case "hue":
		if v, ok := toInt(value); ok {
			l.State.Hue = v
		}
	case "sat":
		if v, ok := toInt(value); ok {
			l.State.Sat = v
		}
	case "ct":
		if v, ok := toInt(value); ok {
			l.State.Ct = v
		}
	case "xy":
		if v, ok := toFloatPair(value); ok {
			l.State.XY = v
		}
	case "alert":
		if v, ok := value.(string); ok {
			l.State.Alert = v
		}
	case "effect":
		if v, ok := value.(string); ok {
			l.State.Effect = v
		}
	case "colormode":
		if v, ok := value.(string); ok {
			l.State.Colormode = v
		}
	}
}

// Delete removes the light from the bridge. The registry keeps its entry
// until the next reload.
func (l *Light) Delete(ctx context.Context) error {
	return l.request(ctx, "", http.MethodDelete, nil)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64: // JSON numbers decode to float64
		return int(v), true
	}
	return 0, false
}

func toFloatPair(value any) ([]float64, bool) {
	switch v := value.(type) {
	case []float64:
		if len(v) == 2 {
			return v, true
		}
	case []any:
		if len(v) != 2 {
			return nil, false
		}
		x, okX := v[0].(float64)
		y, okY := v[1].(float64)
		if okX && okY {
			return []float64{x, y}, true
		}
	}
	return nil, false
}
