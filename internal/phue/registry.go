package phue

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// lastOnStateScene is the sentinel LightScene the bridge maintains per
// light; it is never linked into a light's scene list.
const lastOnStateScene = "Last on state"

// registry holds the cached entity collections. Insertion order is kept
// explicitly so that name lookups stay deterministic (first match wins).
type registry struct {
	lights     map[int]*Light
	lightOrder []int

	groups     map[int]*Group
	groupOrder []int

	scenes     map[string]*Scene
	sceneOrder []string
}

func newRegistry() registry {
	return registry{
		lights: make(map[int]*Light),
		groups: make(map[int]*Group),
		scenes: make(map[string]*Scene),
	}
}

func (r *registry) addLight(l *Light) {
	if _, ok := r.lights[l.ID]; !ok {
		r.lightOrder = append(r.lightOrder, l.ID)
	}
	r.lights[l.ID] = l
}

func (r *registry) addGroup(g *Group) {
	if _, ok := r.groups[g.ID]; !ok {
		r.groupOrder = append(r.groupOrder, g.ID)
	}
	r.groups[g.ID] = g
}

func (r *registry) addScene(s *Scene) {
	if _, ok := r.scenes[s.ID]; !ok {
		r.sceneOrder = append(r.sceneOrder, s.ID)
	}
	r.scenes[s.ID] = s
}

// LoadDevices rebuilds the entity registry from the bridge with three
// sequential fetches: groups, lights, scenes. A fresh registry is built and
// swapped in wholesale, so entries gone from the bridge vanish locally too.
// Each fetch failure is logged and leaves that collection unpopulated
// without affecting the others; scenes are only fetched when the lights
// fetch succeeded, since cross-linking needs resolvable light ids.
func (b *Bridge) LoadDevices(ctx context.Context) {
	reg := newRegistry()

	// Group 0 is the synthetic group spanning all lights. The bridge never
	// reports it, so it goes in first with neutral state.
	everywhere := &Group{ID: 0, Name: "everywhere", bridge: b}
	reg.addGroup(everywhere)

	if body, err := b.SendAuthenticatedRequest(ctx, "/groups", http.MethodGet, nil, true); err == nil && body != nil {
		b.loadGroups(&reg, body)
	} else {
		log.Warn().Err(err).Msg("Failed to fetch groups from bridge")
	}

	lightsLoaded := false
	if body, err := b.SendAuthenticatedRequest(ctx, "/lights", http.MethodGet, nil, true); err == nil && body != nil {
		lightsLoaded = b.loadLights(&reg, body)
	} else {
		log.Warn().Err(err).Msg("Failed to fetch lights from bridge")
	}

	if lightsLoaded {
		if body, err := b.SendAuthenticatedRequest(ctx, "/scenes", http.MethodGet, nil, true); err == nil && body != nil {
			b.loadScenes(&reg, body)
		} else {
			log.Warn().Err(err).Msg("Failed to fetch scenes from bridge")
		}
	}

	b.registry = reg
	log.Debug().
		Int("lights", len(reg.lights)).
		Int("groups", len(reg.groups)).
		Int("scenes", len(reg.scenes)).
		Msg("Device registry rebuilt")
}

func (b *Bridge) loadGroups(reg *registry, body []byte) {
	var raw map[string]groupData
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Warn().Err(err).Msg("Failed to decode groups answer")
		return
	}

	for _, key := range sortedNumericKeys(raw) {
		id, err := strconv.Atoi(key)
		if err != nil {
			log.Warn().Str("id", key).Msg("Skipping group with non-numeric id")
			continue
		}
		reg.addGroup(newGroup(id, raw[key], b))
	}
}

func (b *Bridge) loadLights(reg *registry, body []byte) bool {
	var raw map[string]lightData
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Warn().Err(err).Msg("Failed to decode lights answer")
		return false
	}

	for _, key := range sortedNumericKeys(raw) {
		id, err := strconv.Atoi(key)
		if err != nil {
			log.Warn().Str("id", key).Msg("Skipping light with non-numeric id")
			continue
		}
		reg.addLight(newLight(id, raw[key], b))
	}
	return true
}

func (b *Bridge) loadScenes(reg *registry, body []byte) {
	var raw map[string]sceneData
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Warn().Err(err).Msg("Failed to decode scenes answer")
		return
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		data := raw[id]
		reg.addScene(newScene(id, data, b))

		switch data.Type {
		case "GroupScene":
			gid, err := strconv.Atoi(data.Group)
			if err != nil {
				continue
			}
			if group, ok := reg.groups[gid]; ok {
				group.MyScenes = append(group.MyScenes, id)
			}
		case "LightScene":
			if data.Name == lastOnStateScene {
				continue
			}
			for _, lid := range data.Lights {
				n, err := strconv.Atoi(lid)
				if err != nil {
					continue
				}
				if light, ok := reg.lights[n]; ok {
					light.MyScenes = append(light.MyScenes, id)
				}
			}
		}
	}
}

// sortedNumericKeys orders map keys numerically so registry insertion order
// is stable across loads.
func sortedNumericKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		c, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < c
	})
	return keys
}

// Lights returns the cached lights keyed by id.
func (b *Bridge) Lights() map[int]*Light { return b.registry.lights }

// Groups returns the cached groups keyed by id.
func (b *Bridge) Groups() map[int]*Group { return b.registry.groups }

// Scenes returns the cached scenes keyed by id.
func (b *Bridge) Scenes() map[string]*Scene { return b.registry.scenes }

// GroupsByName returns a name-keyed view of the cached groups.
func (b *Bridge) GroupsByName() map[string]*Group {
	out := make(map[string]*Group, len(b.registry.groups))
	for _, g := range b.registry.groups {
		out[g.Name] = g
	}
	return out
}

// ScenesByName returns a name-keyed view of the cached scenes.
func (b *Bridge) ScenesByName() map[string]*Scene {
	out := make(map[string]*Scene, len(b.registry.scenes))
	for _, s := range b.registry.scenes {
		out[s.Name] = s
	}
	return out
}

// Light looks a light up by id or, when id is 0, by case-insensitive name.
// Passing neither is a programmer error.
func (b *Bridge) Light(id int, name string) (*Light, error) {
	if id == 0 && name == "" {
		return nil, ErrSelectorMissing
	}

	if id == 0 {
		name = strings.ToLower(name)
		for _, lid := range b.registry.lightOrder {
			if light := b.registry.lights[lid]; light.Name == name {
				return light, nil
			}
		}
		return nil, ErrNoSuchLight
	}

	light, ok := b.registry.lights[id]
	if !ok {
		return nil, ErrNoSuchLight
	}
	return light, nil
}

// Group looks a group up by case-insensitive name when one is given,
// otherwise by id. Id 0 is always a valid selector here: it addresses the
// synthetic "everywhere" group.
func (b *Bridge) Group(id int, name string) (*Group, error) {
	if name != "" {
		name = strings.ToLower(name)
		for _, gid := range b.registry.groupOrder {
			if group := b.registry.groups[gid]; group.Name == name {
				return group, nil
			}
		}
		return nil, ErrNoSuchGroup
	}

	group, ok := b.registry.groups[id]
	if !ok {
		return nil, ErrNoSuchGroup
	}
	return group, nil
}

// Scene looks a scene up by id or name. Passing neither is a programmer
// error.
func (b *Bridge) Scene(id, name string) (*Scene, error) {
	if id == "" && name == "" {
		return nil, ErrSelectorMissing
	}

	if id == "" {
		name = strings.ToLower(name)
		for _, sid := range b.registry.sceneOrder {
			if scene := b.registry.scenes[sid]; scene.Name == name {
				return scene, nil
			}
		}
		return nil, ErrNoSuchScene
	}

	scene, ok := b.registry.scenes[id]
	if !ok {
		return nil, ErrNoSuchScene
	}
	return scene, nil
}
