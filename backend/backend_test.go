package backend

import (
	"errors"
	"io"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"software", KindSoftware, false},
		{"Software", KindSoftware, false},
		{"native", KindNative, false},
		{"wgpu", KindNative, false},
		{" native ", KindNative, false},
		{"dx11", KindUnknown, true},
		{"", KindUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownKind) {
				t.Errorf("error %v does not wrap ErrUnknownKind", err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindSoftware, KindNative} {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", k, err)
		}
		var back Kind
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", b, err)
		}
		if back != k {
			t.Errorf("text round trip %v -> %q -> %v", k, b, back)
		}
	}
	if _, err := KindUnknown.MarshalText(); err == nil {
		t.Error("MarshalText(KindUnknown) succeeded")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateUninitialized, "Uninitialized"},
		{StateDeviceReady, "DeviceReady"},
		{StateSwapchainBound, "SwapchainBound"},
		{StateRenderTargetsBound, "RenderTargetsBound"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
	if StateDeviceReady.HasSwapchain() {
		t.Error("DeviceReady should not report a swapchain")
	}
	if !StateRenderTargetsBound.CanDraw() || StateSwapchainBound.CanDraw() {
		t.Error("CanDraw must hold only in RenderTargetsBound")
	}
}

type stubAdapter struct {
	Adapter
	kind Kind
}

func (s *stubAdapter) Kind() Kind { return s.kind }

func TestRegistry(t *testing.T) {
	prevSoftware := IsRegistered(KindSoftware)
	if prevSoftware {
		t.Skip("software backend registered by another import")
	}

	Register(KindSoftware, func() Adapter { return &stubAdapter{kind: KindSoftware} })
	defer Unregister(KindSoftware)

	if !IsRegistered(KindSoftware) {
		t.Fatal("IsRegistered(software) = false after Register")
	}
	a, err := New(KindSoftware)
	if err != nil {
		t.Fatalf("New(software) error = %v", err)
	}
	b, _ := New(KindSoftware)
	if a == b {
		t.Error("New returned the same adapter twice; each context needs its own")
	}
	if a.Kind() != KindSoftware {
		t.Errorf("Kind() = %v", a.Kind())
	}

	found := false
	for _, k := range Available() {
		if k == KindSoftware {
			found = true
		}
	}
	if !found {
		t.Error("Available() missing software")
	}

	Unregister(KindSoftware)
	if _, err := New(KindSoftware); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("New after Unregister error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestDefaultKind(t *testing.T) {
	if IsRegistered(KindSoftware) || IsRegistered(KindNative) {
		t.Skip("backends registered by another import")
	}
	if got := DefaultKind(); got != KindUnknown {
		t.Errorf("DefaultKind() with nothing registered = %v", got)
	}

	Register(KindSoftware, func() Adapter { return &stubAdapter{kind: KindSoftware} })
	defer Unregister(KindSoftware)
	if got := DefaultKind(); got != KindSoftware {
		t.Errorf("DefaultKind() = %v, want software", got)
	}

	Register(KindNative, func() Adapter { return &stubAdapter{kind: KindNative} })
	defer Unregister(KindNative)
	if got := DefaultKind(); got != KindNative {
		t.Errorf("DefaultKind() = %v, want native ahead of software", got)
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New(KindUnknown); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("New(KindUnknown) error = %v, want ErrUnknownKind", err)
	}
	if _, err := New(Kind(42)); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("New(42) error = %v, want ErrUnknownKind", err)
	}
	Register(KindUnknown, func() Adapter { return &stubAdapter{} })
	if IsRegistered(KindUnknown) {
		t.Error("KindUnknown must never register")
	}
}

func TestDeviceRemovedError(t *testing.T) {
	err := error(&DeviceRemovedError{Reason: io.ErrClosedPipe})
	if !errors.Is(err, ErrDeviceRemoved) {
		t.Error("errors.Is(err, ErrDeviceRemoved) = false")
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Error("errors.Is(err, reason) = false")
	}
	var dre *DeviceRemovedError
	if !errors.As(err, &dre) || dre.Reason != io.ErrClosedPipe {
		t.Error("errors.As did not recover the reason")
	}
	if (&DeviceRemovedError{}).Error() != ErrDeviceRemoved.Error() {
		t.Error("nil reason message mismatch")
	}
}

func TestSwapchainLength(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 2}, {1, 2}, {2, 2}, {3, 3}, {8, 3},
	}
	for _, tt := range tests {
		if got := (Config{BufferCount: tt.in}).SwapchainLength(); got != tt.want {
			t.Errorf("SwapchainLength(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMatchInputLayout(t *testing.T) {
	vs := &Bytecode{
		Stage:  StageVertex,
		Inputs: []VertexInput{{Location: 0, Components: 3}, {Location: 1, Components: 2}},
	}
	sprite := []VertexElement{
		{Location: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
		{Location: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
	}

	tests := []struct {
		name     string
		vs       *Bytecode
		elements []VertexElement
		stride   uint64
		wantErr  bool
	}{
		{"sprite layout", vs, sprite, 20, false},
		{"extra element", vs, append(sprite[:2:2], VertexElement{Location: 2, Format: gputypes.VertexFormatFloat32, Offset: 20}), 24, false},
		{"missing uv", vs, sprite[:1], 20, true},
		{"wrong components", vs, []VertexElement{sprite[0], {Location: 1, Format: gputypes.VertexFormatFloat32x3, Offset: 12}}, 24, true},
		{"overrun", vs, sprite, 16, true},
		{"duplicate", vs, []VertexElement{sprite[0], sprite[0], sprite[1]}, 20, true},
		{"pixel shader", &Bytecode{Stage: StagePixel}, sprite, 20, true},
		{"nil shader", nil, sprite, 20, true},
		{"empty", vs, nil, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MatchInputLayout(tt.vs, tt.elements, tt.stride)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MatchInputLayout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInputLayoutMismatch) {
				t.Errorf("error %v does not wrap ErrInputLayoutMismatch", err)
			}
		})
	}
}
