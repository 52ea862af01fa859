package framegraph

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
)

// allocate creates one physical object per surviving resource, with the
// usage of the surviving accesses only.
func (g *Graph) allocate() {
	f := g.f
	var images, buffers int
	for i := range f.images {
		vi := &f.images[i]
		if vi.refs == 0 || vi.imported {
			continue
		}
		var usage vk.ImageUsageFlags
		for _, s := range f.liveStages(vi.stages) {
			usage |= s.ImageUsage
		}
		phys, err := g.dev.CreateImage(&vi.desc, usage)
		render.OrPanic(errors.Wrapf(err, "framegraph: create image %q", vi.desc.Name))
		vi.physical = len(f.physImages)
		f.physImages = append(f.physImages, phys)
		g.owned.Images = append(g.owned.Images, phys)
		images++
	}
	for i := range f.buffers {
		vb := &f.buffers[i]
		if vb.refs == 0 || vb.imported {
			continue
		}
		var usage vk.BufferUsageFlags
		for _, s := range f.liveStages(vb.stages) {
			usage |= s.BufferUsage
		}
		phys, err := g.dev.CreateBuffer(&vb.desc, usage)
		render.OrPanic(errors.Wrapf(err, "framegraph: create buffer %q", vb.desc.Name))
		vb.physical = len(f.physBuffers)
		f.physBuffers = append(f.physBuffers, phys)
		g.owned.Buffers = append(g.owned.Buffers, phys)
		buffers++
	}
	g.log.Debug("allocate", "images", images, "buffers", buffers)
}
