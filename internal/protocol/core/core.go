package core

import "github.com/danmuck/wlcore/internal/protocol/schema"

var (
	Display    = &schema.Interface{Name: "wl_display", Version: 1}
	Registry   = &schema.Interface{Name: "wl_registry", Version: 1}
	Callback   = &schema.Interface{Name: "wl_callback", Version: 1}
	Compositor = &schema.Interface{Name: "wl_compositor", Version: 4}
	Surface    = &schema.Interface{Name: "wl_surface", Version: 4}
	Region     = &schema.Interface{Name: "wl_region", Version: 1}
	Buffer     = &schema.Interface{Name: "wl_buffer", Version: 1}
)

// wl_display
const (
	DisplaySync        uint16 = 0
	DisplayGetRegistry uint16 = 1

	DisplayEventError    uint16 = 0
	DisplayEventDeleteID uint16 = 1
)

// wl_registry
const (
	RegistryBind uint16 = 0

	RegistryEventGlobal       uint16 = 0
	RegistryEventGlobalRemove uint16 = 1
)

const CallbackEventDone uint16 = 0

// wl_compositor
const (
	CompositorCreateSurface uint16 = 0
	CompositorCreateRegion  uint16 = 1
)

// wl_surface
const (
	SurfaceDestroy            uint16 = 0
	SurfaceAttach             uint16 = 1
	SurfaceDamage             uint16 = 2
	SurfaceFrame              uint16 = 3
	SurfaceSetOpaqueRegion    uint16 = 4
	SurfaceSetInputRegion     uint16 = 5
	SurfaceCommit             uint16 = 6
	SurfaceSetBufferTransform uint16 = 7
	SurfaceSetBufferScale     uint16 = 8
	SurfaceDamageBuffer       uint16 = 9

	SurfaceEventEnter uint16 = 0
	SurfaceEventLeave uint16 = 1
)

// wl_region
const (
	RegionDestroy  uint16 = 0
	RegionAdd      uint16 = 1
	RegionSubtract uint16 = 2
)

const (
	BufferDestroy      uint16 = 0
	BufferEventRelease uint16 = 0
)

func init() {
	Display.Requests = []schema.Message{
		{Name: "sync", Signature: "n", Types: []*schema.Interface{Callback}},
		{Name: "get_registry", Signature: "n", Types: []*schema.Interface{Registry}},
	}
	Display.Events = []schema.Message{
		{Name: "error", Signature: "ous", Types: []*schema.Interface{nil}},
		{Name: "delete_id", Signature: "u"},
	}

	// bind carries a dynamically typed new_id, spelled out as interface name
	// and version ahead of the id.
	Registry.Requests = []schema.Message{
		{Name: "bind", Signature: "usun", Types: []*schema.Interface{nil}},
	}
	Registry.Events = []schema.Message{
		{Name: "global", Signature: "usu"},
		{Name: "global_remove", Signature: "u"},
	}

	Callback.Events = []schema.Message{
		{Name: "done", Signature: "u"},
	}

	Compositor.Requests = []schema.Message{
		{Name: "create_surface", Signature: "n", Types: []*schema.Interface{Surface}},
		{Name: "create_region", Signature: "n", Types: []*schema.Interface{Region}},
	}

	Surface.Requests = []schema.Message{
		{Name: "destroy", Signature: ""},
		{Name: "attach", Signature: "?oii", Types: []*schema.Interface{Buffer}},
		{Name: "damage", Signature: "iiii"},
		{Name: "frame", Signature: "n", Types: []*schema.Interface{Callback}},
		{Name: "set_opaque_region", Signature: "?o", Types: []*schema.Interface{Region}},
		{Name: "set_input_region", Signature: "?o", Types: []*schema.Interface{Region}},
		{Name: "commit", Signature: ""},
		{Name: "set_buffer_transform", Signature: "2i"},
		{Name: "set_buffer_scale", Signature: "3i"},
		{Name: "damage_buffer", Signature: "4iiii"},
	}
	// wl_output is not published here; enter and leave stay untyped.
	Surface.Events = []schema.Message{
		{Name: "enter", Signature: "o", Types: []*schema.Interface{nil}},
		{Name: "leave", Signature: "o", Types: []*schema.Interface{nil}},
	}

	Region.Requests = []schema.Message{
		{Name: "destroy", Signature: ""},
		{Name: "add", Signature: "iiii"},
		{Name: "subtract", Signature: "iiii"},
	}

	Buffer.Requests = []schema.Message{
		{Name: "destroy", Signature: ""},
	}
	Buffer.Events = []schema.Message{
		{Name: "release", Signature: ""},
	}

	schema.MustCompile(All()...)
}

// All lists every published interface.
func All() []*schema.Interface {
	return []*schema.Interface{Display, Registry, Callback, Compositor, Surface, Region, Buffer}
}

// Lookup finds a published interface by name.
func Lookup(name string) (*schema.Interface, bool) {
	for _, iface := range All() {
		if iface.Name == name {
			return iface, true
		}
	}
	return nil, false
}
