package phue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Group is a typed local mirror of a bridge-managed group. Group 0 is the
// synthetic "everywhere" group spanning all lights; the bridge never
// reports it. Mutators follow the same optimistic pattern as Light but
// have no reachability gate.
type Group struct {
	ID        int
	Name      string
	Lights    []string
	Sensors   []string
	Type      string
	Class     string
	Recycle   bool
	State     GroupState
	Action    GroupAction
	Stream    json.RawMessage
	Locations json.RawMessage

	// MyScenes lists the ids of the GroupScenes defined for this group.
	MyScenes []string

	bridge *Bridge
}

func newGroup(id int, data groupData, bridge *Bridge) *Group {
	return &Group{
		ID:        id,
		Name:      strings.ToLower(data.Name),
		Lights:    data.Lights,
		Sensors:   data.Sensors,
		Type:      data.Type,
		Class:     data.Class,
		Recycle:   data.Recycle,
		State:     data.State,
		Action:    data.Action,
		Stream:    data.Stream,
		Locations: data.Locations,
		bridge:    bridge,
	}
}

func (g *Group) String() string {
	return fmt.Sprintf("group %d named %q with %d lights and %d sensors attributed", g.ID, g.Name, len(g.Lights), len(g.Sensors))
}

// IsOn reports whether any member light is on, per the cached aggregate.
func (g *Group) IsOn() bool { return g.State.AnyOn }

// IsOff reports whether all member lights are off, per the cached aggregate.
func (g *Group) IsOff() bool { return !g.State.AnyOn }

func (g *Group) request(ctx context.Context, path, method string, data any) ([]byte, error) {
	if g.bridge == nil {
		return nil, fmt.Errorf("%w: group %d has no bridge attached", ErrRequestFailed, g.ID)
	}
	return g.bridge.SendAuthenticatedRequest(ctx, fmt.Sprintf("/groups/%d%s", g.ID, path), method, data, false)
}

func (g *Group) putAction(ctx context.Context, data any) error {
	_, err := g.request(ctx, "/action", http.MethodPut, data)
	return err
}

// On turns every light of the group on. Both aggregate flags are set
// locally before the request goes out.
func (g *Group) On(ctx context.Context) error {
	g.State.AnyOn = true
	g.State.AllOn = true
	return g.putAction(ctx, map[string]any{"on": true})
}

// Off turns every light of the group off.
func (g *Group) Off(ctx context.Context) error {
	g.State.AnyOn = false
	g.State.AllOn = false
	return g.putAction(ctx, map[string]any{"on": false})
}

// Toggle turns the group off when any light is on, on otherwise.
func (g *Group) Toggle(ctx context.Context) error {
	if g.IsOff() {
		return g.On(ctx)
	}
	return g.Off(ctx)
}

// SetBrightness clamps the value to [1, 254] and applies it to the whole
// group. A value of 0 turns the group off instead.
func (g *Group) SetBrightness(ctx context.Context, value int) error {
	if value == 0 {
		if err := g.Off(ctx); err != nil {
			return err
		}
		g.Action.Bri = 0
		return nil
	}

	value = clamp(value, 1, 254)
	g.Action.Bri = value
	return g.putAction(ctx, map[string]any{"bri": value})
}

// SetSaturation clamps the value to [1, 254] and applies it.
func (g *Group) SetSaturation(ctx context.Context, value int) error {
	value = clamp(value, 1, 254)
	g.Action.Sat = value
	return g.putAction(ctx, map[string]any{"sat": value})
}

// SetHue clamps the value to [0, 65535] and applies it.
func (g *Group) SetHue(ctx context.Context, value int) error {
	value = clamp(value, 0, 65535)
	g.Action.Hue = value
	return g.putAction(ctx, map[string]any{"hue": value})
}

// Alert runs an alert effect on the group, "lselect" when none is given.
func (g *Group) Alert(ctx context.Context, alert string) error {
	if alert == "" {
		alert = "lselect"
	}
	return g.putAction(ctx, map[string]any{"alert": alert})
}

// Effect runs a light effect on the group, "colorloop" when none is given.
func (g *Group) Effect(ctx context.Context, effect string) error {
	if effect == "" {
		effect = "colorloop"
	}
	return g.putAction(ctx, map[string]any{"effect": effect})
}

// ApplyScene recalls a scene on this group, selected by id or by
// case-insensitive name. A scene unknown to the bridge raises
// ErrNoSuchScene; one that exists but is not linked to this group raises
// ErrNoSuchSceneInGroup.
func (g *Group) ApplyScene(ctx context.Context, sceneID, sceneName string) error {
	if sceneID == "" && sceneName == "" {
		return ErrSelectorMissing
	}
	if g.bridge == nil {
		return fmt.Errorf("%w: group %d has no bridge attached", ErrRequestFailed, g.ID)
	}

	if sceneID == "" {
		want := strings.ToLower(sceneName)
		for _, id := range g.MyScenes {
			scene, ok := g.bridge.registry.scenes[id]
			if !ok || strings.ToLower(scene.Name) != want {
				continue
			}
			return g.putAction(ctx, map[string]any{"scene": id})
		}
		return ErrNoSuchSceneInGroup
	}

	if _, ok := g.bridge.registry.scenes[sceneID]; !ok {
		return ErrNoSuchScene
	}
	if !slices.Contains(g.MyScenes, sceneID) {
		return ErrNoSuchSceneInGroup
	}
	return g.putAction(ctx, map[string]any{"scene": sceneID})
}

// Rename asks the bridge to rename the group and inspects the
// acknowledgment. When the bridge confirms the requested name it is
// adopted locally. When the bridge answers with a different name (the
// requested one already exists) the bridge's choice is adopted only if the
// caller opted in via allowExistingName; otherwise a compensating rename
// back to the prior name is issued and false is returned.
func (g *Group) Rename(ctx context.Context, newName string, allowExistingName bool) (bool, error) {
	body, err := g.request(ctx, "", http.MethodPut, map[string]any{"name": newName})
	if err != nil {
		return false, err
	}

	key := fmt.Sprintf("/groups/%d/name", g.ID)
	for _, result := range parseResults(body) {
		raw, ok := result.Success[key]
		if !ok {
			continue
		}
		var confirmed string
		if err := json.Unmarshal(raw, &confirmed); err != nil {
			continue
		}

		if confirmed == newName {
			g.Name = newName
			return true, nil
		}
		if allowExistingName {
			g.Name = confirmed
			return true, nil
		}

		if _, err := g.request(ctx, "", http.MethodPut, map[string]any{"name": g.Name}); err != nil {
			return false, err
		}
		return false, nil
	}

	return false, nil
}

// Delete removes the group from the bridge. The registry keeps its entry
// until the next reload.
func (g *Group) Delete(ctx context.Context) error {
	_, err := g.request(ctx, "", http.MethodDelete, nil)
	return err
}
