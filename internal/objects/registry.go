package objects

import (
	"fmt"

	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/protocol/core"
	"github.com/danmuck/wlcore/internal/protocol/schema"
)

func displayImplementation(d *Display) Implementation {
	return Implementation{
		core.DisplaySync: func(r *Resource, args []schema.Value) error {
			cb, err := r.client.NewResource(core.Callback, 1, args[0].Object, nil)
			if err != nil {
				return err
			}
			if err := cb.PostEvent(core.CallbackEventDone, schema.Uint(d.NextSerial())); err != nil {
				return err
			}
			cb.Destroy()
			return nil
		},
		core.DisplayGetRegistry: func(r *Resource, args []schema.Value) error {
			reg, err := r.client.NewResource(core.Registry, core.Registry.Version, args[0].Object, registryImplementation(d))
			if err != nil {
				return err
			}
			for _, g := range d.Globals() {
				if err := announceGlobal(reg, g); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func registryImplementation(d *Display) Implementation {
	return Implementation{
		core.RegistryBind: func(r *Resource, args []schema.Value) error {
			name, ifaceName, version, id := args[0].Uint, args[1].Str, args[2].Uint, args[3].Object
			g, ok := d.global(name)
			if !ok {
				return fmt.Errorf("objects: wl_registry.bind: global %d: %w", name, protocol.ErrUnknownObject)
			}
			if g.Interface.Name != ifaceName {
				return fmt.Errorf("objects: wl_registry.bind: global %d is %s, not %s: %w",
					name, g.Interface.Name, ifaceName, protocol.ErrInterfaceMismatch)
			}
			if version == 0 || version > g.Version {
				return fmt.Errorf("objects: wl_registry.bind: %s version %d, have %d: %w",
					ifaceName, version, g.Version, protocol.ErrVersionUnsupported)
			}
			if g.bind == nil {
				_, err := r.client.NewResource(g.Interface, version, id, nil)
				return err
			}
			_, err := g.bind(r.client, version, id)
			return err
		},
	}
}

func announceGlobal(registry *Resource, g *Global) error {
	return registry.PostEvent(
		core.RegistryEventGlobal,
		schema.Uint(g.Name),
		schema.String(g.Interface.Name),
		schema.Uint(g.Version),
	)
}
