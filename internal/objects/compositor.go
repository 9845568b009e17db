package objects

import (
	"fmt"

	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/protocol/core"
	"github.com/danmuck/wlcore/internal/protocol/schema"
)

type Rect struct {
	X, Y, Width, Height int32
}

// SurfaceState is one double-buffered set of wl_surface attributes.
type SurfaceState struct {
	Buffer       uint32
	DX, DY       int32
	Damage       []Rect
	BufferDamage []Rect
	OpaqueRegion uint32
	InputRegion  uint32
	Transform    int32
	Scale        int32
	frames       []*Resource
}

// Surface is the server side of wl_surface. Requests update Pending;
// commit moves it to Current.
type Surface struct {
	Resource *Resource
	Pending  SurfaceState
	Current  SurfaceState
	Commits  int
}

// Region is the server side of wl_region.
type Region struct {
	Resource *Resource
	Added    []Rect
	Removed  []Rect
}

// AddCompositor advertises wl_compositor on d.
func AddCompositor(d *Display) (*Global, error) {
	return d.AddGlobal(core.Compositor, core.Compositor.Version, func(c *Client, version, id uint32) (*Resource, error) {
		return c.NewResource(core.Compositor, version, id, compositorImplementation)
	})
}

var compositorImplementation = Implementation{
	core.CompositorCreateSurface: func(r *Resource, args []schema.Value) error {
		res, err := r.client.NewResource(core.Surface, r.version, args[0].Object, surfaceImplementation)
		if err != nil {
			return err
		}
		s := &Surface{Resource: res, Pending: SurfaceState{Scale: 1}, Current: SurfaceState{Scale: 1}}
		res.Data = s
		res.AddDestroyListener(&Listener{Notify: func(any) { s.dropFrames() }})
		return nil
	},
	core.CompositorCreateRegion: func(r *Resource, args []schema.Value) error {
		res, err := r.client.NewResource(core.Region, 1, args[0].Object, regionImplementation)
		if err != nil {
			return err
		}
		res.Data = &Region{Resource: res}
		return nil
	},
}

var surfaceImplementation = Implementation{
	core.SurfaceDestroy: destroyRequest,
	core.SurfaceAttach: func(r *Resource, args []schema.Value) error {
		s := surfaceOf(r)
		s.Pending.Buffer = args[0].Object
		s.Pending.DX, s.Pending.DY = args[1].Int, args[2].Int
		return nil
	},
	core.SurfaceDamage: func(r *Resource, args []schema.Value) error {
		s := surfaceOf(r)
		s.Pending.Damage = append(s.Pending.Damage, rectOf(args))
		return nil
	},
	core.SurfaceFrame: func(r *Resource, args []schema.Value) error {
		cb, err := r.client.NewResource(core.Callback, 1, args[0].Object, nil)
		if err != nil {
			return err
		}
		s := surfaceOf(r)
		s.Pending.frames = append(s.Pending.frames, cb)
		return nil
	},
	core.SurfaceSetOpaqueRegion: func(r *Resource, args []schema.Value) error {
		surfaceOf(r).Pending.OpaqueRegion = args[0].Object
		return nil
	},
	core.SurfaceSetInputRegion: func(r *Resource, args []schema.Value) error {
		surfaceOf(r).Pending.InputRegion = args[0].Object
		return nil
	},
	core.SurfaceCommit: func(r *Resource, _ []schema.Value) error {
		surfaceOf(r).commit()
		return nil
	},
	core.SurfaceSetBufferTransform: func(r *Resource, args []schema.Value) error {
		if t := args[0].Int; t < 0 || t > 7 {
			return fmt.Errorf("objects: wl_surface.set_buffer_transform %d: %w", t, protocol.ErrArgumentKind)
		}
		surfaceOf(r).Pending.Transform = args[0].Int
		return nil
	},
	core.SurfaceSetBufferScale: func(r *Resource, args []schema.Value) error {
		if args[0].Int < 1 {
			return fmt.Errorf("objects: wl_surface.set_buffer_scale %d: %w", args[0].Int, protocol.ErrArgumentKind)
		}
		surfaceOf(r).Pending.Scale = args[0].Int
		return nil
	},
	core.SurfaceDamageBuffer: func(r *Resource, args []schema.Value) error {
		s := surfaceOf(r)
		s.Pending.BufferDamage = append(s.Pending.BufferDamage, rectOf(args))
		return nil
	},
}

var regionImplementation = Implementation{
	core.RegionDestroy: destroyRequest,
	core.RegionAdd: func(r *Resource, args []schema.Value) error {
		reg := r.Data.(*Region)
		reg.Added = append(reg.Added, rectOf(args))
		return nil
	},
	core.RegionSubtract: func(r *Resource, args []schema.Value) error {
		reg := r.Data.(*Region)
		reg.Removed = append(reg.Removed, rectOf(args))
		return nil
	},
}

func destroyRequest(r *Resource, _ []schema.Value) error {
	r.Destroy()
	return nil
}

func surfaceOf(r *Resource) *Surface {
	return r.Data.(*Surface)
}

func rectOf(args []schema.Value) Rect {
	return Rect{X: args[0].Int, Y: args[1].Int, Width: args[2].Int, Height: args[3].Int}
}

func (s *Surface) commit() {
	frames := append(s.Current.frames, s.Pending.frames...)
	s.Current = s.Pending
	s.Current.frames = frames
	s.Pending.Damage = nil
	s.Pending.BufferDamage = nil
	s.Pending.frames = nil
	s.Commits++
}

// FrameDone sends done to every committed frame callback and destroys them.
func (s *Surface) FrameDone(msec uint32) error {
	frames := s.Current.frames
	s.Current.frames = nil
	var firstErr error
	for _, cb := range frames {
		if err := cb.PostEvent(core.CallbackEventDone, schema.Uint(msec)); err != nil && firstErr == nil {
			firstErr = err
		}
		cb.Destroy()
	}
	return firstErr
}

// PendingFrames is the number of committed callbacks waiting for FrameDone.
func (s *Surface) PendingFrames() int {
	return len(s.Current.frames)
}

func (s *Surface) dropFrames() {
	for _, cb := range append(s.Pending.frames, s.Current.frames...) {
		cb.Destroy()
	}
	s.Pending.frames = nil
	s.Current.frames = nil
}
