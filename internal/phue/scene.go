package phue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scene is a typed local mirror of a bridge-managed scene. Scenes carry no
// mutators of their own; they are recalled through the Group they belong
// to. The association to groups and lights lives in those entities'
// MyScenes lists, built during LoadDevices.
type Scene struct {
	ID          string
	Name        string
	Type        string
	Group       string
	Lights      []string
	Owner       string
	Recycle     bool
	Locked      bool
	AppData     json.RawMessage
	Picture     string
	Image       string
	LastUpdated string
	Version     int

	bridge requester
}

func newScene(id string, data sceneData, bridge requester) *Scene {
	return &Scene{
		ID:          id,
		Name:        strings.ToLower(data.Name),
		Type:        data.Type,
		Group:       data.Group,
		Lights:      data.Lights,
		Owner:       data.Owner,
		Recycle:     data.Recycle,
		Locked:      data.Locked,
		AppData:     data.AppData,
		Picture:     data.Picture,
		Image:       data.Image,
		LastUpdated: data.LastUpdated,
		Version:     data.Version,
		bridge:      bridge,
	}
}

func (s *Scene) String() string {
	return fmt.Sprintf("scene %s named %q with %d lights", s.ID, s.Name, len(s.Lights))
}
