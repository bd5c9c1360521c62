package phue

import "encoding/json"

// lightData mirrors a single entry of the bridge's /lights answer (v1 API).
type lightData struct {
	State            LightState      `json:"state"`
	SWUpdate         json.RawMessage `json:"swupdate"`
	Type             string          `json:"type"`
	Name             string          `json:"name"`
	ModelID          string          `json:"modelid"`
	ManufacturerName string          `json:"manufacturername"`
	ProductName      string          `json:"productname"`
	Capabilities     json.RawMessage `json:"capabilities"`
	Config           json.RawMessage `json:"config"`
	UniqueID         string          `json:"uniqueid"`
	SWVersion        string          `json:"swversion"`
	SWConfigID       string          `json:"swconfigid"`
	ProductID        string          `json:"productid"`
}

// LightState is the mutable part of a light.
type LightState struct {
	On        bool      `json:"on"`
	Bri       int       `json:"bri"`
	Hue       int       `json:"hue"`
	Sat       int       `json:"sat"`
	Effect    string    `json:"effect,omitempty"`
	XY        []float64 `json:"xy,omitempty"`
	Ct        int       `json:"ct"`
	Alert     string    `json:"alert,omitempty"`
	Colormode string    `json:"colormode,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Reachable bool      `json:"reachable"`
}

// groupData mirrors a single entry of the bridge's /groups answer.
type groupData struct {
	Name      string          `json:"name"`
	Lights    []string        `json:"lights"`
	Sensors   []string        `json:"sensors"`
	Type      string          `json:"type"`
	State     GroupState      `json:"state"`
	Recycle   bool            `json:"recycle"`
	Action    GroupAction     `json:"action"`
	Class     string          `json:"class"`
	Stream    json.RawMessage `json:"stream"`
	Locations json.RawMessage `json:"locations"`
}

// GroupState aggregates the power state of a group's member lights.
type GroupState struct {
	AllOn bool `json:"all_on"`
	AnyOn bool `json:"any_on"`
}

// GroupAction is the last action applied to a group.
type GroupAction struct {
	On        bool      `json:"on"`
	Bri       int       `json:"bri"`
	Hue       int       `json:"hue"`
	Sat       int       `json:"sat"`
	Effect    string    `json:"effect,omitempty"`
	XY        []float64 `json:"xy,omitempty"`
	Ct        int       `json:"ct"`
	Alert     string    `json:"alert,omitempty"`
	Colormode string    `json:"colormode,omitempty"`
}

// sceneData mirrors a single entry of the bridge's /scenes answer.
type sceneData struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Group       string          `json:"group"`
	Lights      []string        `json:"lights"`
	Owner       string          `json:"owner"`
	Recycle     bool            `json:"recycle"`
	Locked      bool            `json:"locked"`
	AppData     json.RawMessage `json:"appdata"`
	Picture     string          `json:"picture"`
	Image       string          `json:"image"`
	LastUpdated string          `json:"lastupdated"`
	Version     int             `json:"version"`
}

// discoveryCandidate is one entry of the N-UPnP discovery endpoint answer.
type discoveryCandidate struct {
	ID                string `json:"id"`
	InternalIPAddress string `json:"internalipaddress"`
}

// apiResult is one element of the array the bridge answers writes with.
// Each element carries either an "error" or a "success" key.
type apiResult struct {
	Error   *apiError                  `json:"error"`
	Success map[string]json.RawMessage `json:"success"`
}

type apiError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func parseResults(body []byte) []apiResult {
	var results []apiResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil
	}
	return results
}

// errorReturned reports whether the bridge acknowledged an operation with an
// error envelope. Single-operation answers are one-element arrays.
func errorReturned(body []byte) bool {
	results := parseResults(body)
	return len(results) > 0 && results[0].Error != nil
}

// successReturned reports whether the bridge acknowledged an operation with a
// success envelope.
func successReturned(body []byte) bool {
	results := parseResults(body)
	return len(results) > 0 && results[0].Success != nil
}
