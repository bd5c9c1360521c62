package phue

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

type fakeCall struct {
	Path   string
	Method string
	Data   any
}

// fakeRequester records entity requests without any network involved.
type fakeRequester struct {
	calls []fakeCall
	resp  []byte
	err   error
}

func (f *fakeRequester) SendAuthenticatedRequest(ctx context.Context, path, method string, data any, silent bool) ([]byte, error) {
	f.calls = append(f.calls, fakeCall{Path: path, Method: method, Data: data})
	return f.resp, f.err
}

func reachableLight(f *fakeRequester) *Light {
	return &Light{
		ID:     1,
		Name:   "ceiling",
		State:  LightState{On: true, Bri: 100, Sat: 100, Hue: 1000, Ct: 366, Colormode: "ct", Reachable: true},
		bridge: f,
	}
}

func TestLightOnOff(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)

	if err := light.On(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := light.Off(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []fakeCall{
		{Path: "/lights/1/state", Method: http.MethodPut, Data: map[string]any{"on": true}},
		{Path: "/lights/1/state", Method: http.MethodPut, Data: map[string]any{"on": false}},
	}
	if !reflect.DeepEqual(f.calls, want) {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
}

func TestLightBrightnessClamping(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"below range", -10, 1},
		{"low bound", 1, 1},
		{"in range", 180, 180},
		{"high bound", 254, 254},
		{"above range", 400, 254},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRequester{}
			light := reachableLight(f)

			if err := light.SetBrightness(context.Background(), tt.value); err != nil {
				t.Fatal(err)
			}
			if light.State.Bri != tt.want {
				t.Errorf("cached bri = %d, want %d", light.State.Bri, tt.want)
			}
			if len(f.calls) != 1 {
				t.Fatalf("got %d calls, want 1", len(f.calls))
			}
			sent := f.calls[0].Data.(map[string]any)["bri"]
			if sent != tt.want {
				t.Errorf("sent bri = %v, want %d", sent, tt.want)
			}
		})
	}
}

func TestLightBrightnessZeroTurnsOff(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)

	if err := light.SetBrightness(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if light.State.Bri != 0 {
		t.Errorf("cached bri = %d, want 0", light.State.Bri)
	}
	if len(f.calls) != 1 {
		t.Fatalf("got %d calls, want exactly the off call", len(f.calls))
	}
	want := fakeCall{Path: "/lights/1/state", Method: http.MethodPut, Data: map[string]any{"on": false}}
	if !reflect.DeepEqual(f.calls[0], want) {
		t.Errorf("call = %v, want %v", f.calls[0], want)
	}
}

func TestLightSaturationAndHueClamping(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)
	ctx := context.Background()

	if err := light.SetSaturation(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if light.State.Sat != 1 {
		t.Errorf("sat = %d, want clamped to 1", light.State.Sat)
	}

	if err := light.SetHue(ctx, 70000); err != nil {
		t.Fatal(err)
	}
	if light.State.Hue != 65535 {
		t.Errorf("hue = %d, want clamped to 65535", light.State.Hue)
	}

	if err := light.SetHue(ctx, -5); err != nil {
		t.Fatal(err)
	}
	if light.State.Hue != 0 {
		t.Errorf("hue = %d, want clamped to 0", light.State.Hue)
	}
}

func TestLightXYClampsEachCoordinate(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)

	if err := light.SetXY(context.Background(), -0.5, 1.7); err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1}
	if !reflect.DeepEqual(light.State.XY, want) {
		t.Errorf("cached xy = %v, want %v", light.State.XY, want)
	}
	sent := f.calls[0].Data.(map[string]any)["xy"]
	if !reflect.DeepEqual(sent, want) {
		t.Errorf("sent xy = %v, want %v", sent, want)
	}
}

func TestLightMired(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)

	if err := light.SetMired(context.Background(), 250); err != nil {
		t.Fatal(err)
	}
	if light.State.Ct != 250 {
		t.Errorf("ct = %d, want 250", light.State.Ct)
	}
}

func TestLightColormode(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)
	ctx := context.Background()

	if err := light.SetColormode(ctx, "xy"); err != nil {
		t.Fatal(err)
	}
	if light.State.Colormode != "xy" {
		t.Errorf("colormode = %q, want %q", light.State.Colormode, "xy")
	}

	// Invalid mode is coerced to ct instead of rejected.
	if err := light.SetColormode(ctx, "rgb"); err != nil {
		t.Fatal(err)
	}
	if light.State.Colormode != "ct" {
		t.Errorf("colormode = %q, want coerced %q", light.State.Colormode, "ct")
	}

	// A light without colormode support is left untouched.
	light.State.Colormode = ""
	before := len(f.calls)
	if err := light.SetColormode(ctx, "hs"); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != before {
		t.Error("unsupported colormode change must not hit the bridge")
	}
}

func TestLightNotReachableGate(t *testing.T) {
	ctx := context.Background()

	mutators := map[string]func(*Light) error{
		"On":             func(l *Light) error { return l.On(ctx) },
		"Off":            func(l *Light) error { return l.Off(ctx) },
		"SetBrightness":  func(l *Light) error { return l.SetBrightness(ctx, 100) },
		"SetBrightness0": func(l *Light) error { return l.SetBrightness(ctx, 0) },
		"SetSaturation":  func(l *Light) error { return l.SetSaturation(ctx, 100) },
		"SetHue":         func(l *Light) error { return l.SetHue(ctx, 100) },
		"SetXY":          func(l *Light) error { return l.SetXY(ctx, 0.5, 0.5) },
		"SetMired":       func(l *Light) error { return l.SetMired(ctx, 250) },
		"SetColormode":   func(l *Light) error { return l.SetColormode(ctx, "hs") },
		"Alert":          func(l *Light) error { return l.Alert(ctx, "") },
		"Effect":         func(l *Light) error { return l.Effect(ctx, "") },
		"ApplyScene":     func(l *Light) error { return l.ApplyScene(ctx, "s2") },
		"Delete":         func(l *Light) error { return l.Delete(ctx) },
	}

	for name, mutate := range mutators {
		t.Run(name, func(t *testing.T) {
			f := &fakeRequester{}
			light := reachableLight(f)
			light.State.Reachable = false

			err := mutate(light)
			if !errors.Is(err, ErrLightNotReachable) {
				t.Errorf("error = %v, want ErrLightNotReachable", err)
			}
			if len(f.calls) != 0 {
				t.Errorf("got %d network calls, want 0", len(f.calls))
			}
		})
	}
}

func TestLightAlertAndEffectDefaults(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)
	ctx := context.Background()

	if err := light.Alert(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := light.Effect(ctx, ""); err != nil {
		t.Fatal(err)
	}

	if got := f.calls[0].Data.(map[string]any)["alert"]; got != "lselect" {
		t.Errorf("alert = %v, want lselect", got)
	}
	if got := f.calls[1].Data.(map[string]any)["effect"]; got != "colorloop" {
		t.Errorf("effect = %v, want colorloop", got)
	}
}

func TestLightApplyScene(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)
	light.MyScenes = []string{"s2"}
	ctx := context.Background()

	if err := light.ApplyScene(ctx, "s2"); err != nil {
		t.Fatal(err)
	}
	want := fakeCall{Path: "/groups/0/action", Method: http.MethodPut, Data: map[string]any{"scene": "s2"}}
	if len(f.calls) != 1 || !reflect.DeepEqual(f.calls[0], want) {
		t.Errorf("calls = %v, want [%v]", f.calls, want)
	}

	if err := light.ApplyScene(ctx, ""); !errors.Is(err, ErrSelectorMissing) {
		t.Errorf("error = %v, want ErrSelectorMissing", err)
	}
	if err := light.ApplyScene(ctx, "s1"); !errors.Is(err, ErrNoSuchSceneInLight) {
		t.Errorf("error = %v, want ErrNoSuchSceneInLight", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("got %d network calls, want only the recall", len(f.calls))
	}
}

func TestLightConfigure(t *testing.T) {
	f := &fakeRequester{}
	light := reachableLight(f)

	data := map[string]any{"on": false, "bri": float64(42), "xy": []any{0.2, 0.3}, "bogus": "ignored"}
	if err := light.Configure(context.Background(), data, true); err != nil {
		t.Fatal(err)
	}

	if light.State.On {
		t.Error("on flag not applied")
	}
	if light.State.Bri != 42 {
		t.Errorf("bri = %d, want 42", light.State.Bri)
	}
	if !reflect.DeepEqual(light.State.XY, []float64{0.2, 0.3}) {
		t.Errorf("xy = %v, want [0.2 0.3]", light.State.XY)
	}
	if len(f.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(f.calls))
	}

	// Without sendToBridge nothing goes out.
	if err := light.Configure(context.Background(), map[string]any{"bri": float64(10)}, false); err != nil {
		t.Fatal(err)
	}
	if light.State.Bri != 10 {
		t.Errorf("bri = %d, want 10", light.State.Bri)
	}
	if len(f.calls) != 1 {
		t.Error("Configure without send must not hit the bridge")
	}
}
