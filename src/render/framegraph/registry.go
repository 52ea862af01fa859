package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// Registry resolves handles to physical objects while a pass records. It
// only resolves resources the pass declared.
type Registry struct {
	g    *Graph
	pass PassID
}

func (r *Registry) Pass() PassID { return r.pass }

// Image returns the physical image behind h.
func (r *Registry) Image(h ImageHandle) PhysicalImage {
	f := r.g.f
	r.g.checkImage(h)
	if !f.passes[r.pass].declared(imageRef(h)) {
		r.g.fatalf("pass %q resolves image %q it never declared", f.passes[r.pass].name, f.images[h.index()].desc.Name)
	}
	vi := &f.images[h.index()]
	if vi.physical == noPhysical {
		r.g.fatalf("image %q is not allocated", vi.desc.Name)
	}
	return f.physImages[vi.physical]
}

func (r *Registry) Buffer(h BufferHandle) PhysicalBuffer {
	f := r.g.f
	r.g.checkBuffer(h)
	if !f.passes[r.pass].declared(bufferRef(h)) {
		r.g.fatalf("pass %q resolves buffer %q it never declared", f.passes[r.pass].name, f.buffers[h.index()].desc.Name)
	}
	vb := &f.buffers[h.index()]
	if vb.physical == noPhysical {
		r.g.fatalf("buffer %q is not allocated", vb.desc.Name)
	}
	return f.physBuffers[vb.physical]
}

// ImageDesc returns a copy of the description of a declared image.
func (r *Registry) ImageDesc(h ImageHandle) ImageDesc {
	f := r.g.f
	r.g.checkImage(h)
	if !f.passes[r.pass].declared(imageRef(h)) {
		r.g.fatalf("pass %q reads the description of image %q it never declared", f.passes[r.pass].name, f.images[h.index()].desc.Name)
	}
	return f.images[h.index()].desc
}

func (r *Registry) BufferDesc(h BufferHandle) BufferDesc {
	f := r.g.f
	r.g.checkBuffer(h)
	if !f.passes[r.pass].declared(bufferRef(h)) {
		r.g.fatalf("pass %q reads the description of buffer %q it never declared", f.passes[r.pass].name, f.buffers[h.index()].desc.Name)
	}
	return f.buffers[h.index()].desc
}

// RenderPass is the render pass the pass records inside, or a null handle
// for non-graphics passes.
func (r *Registry) RenderPass() vk.RenderPass {
	p := &r.g.f.passes[r.pass].plan
	if p.renderPass < 0 {
		return vk.RenderPass(vk.NullHandle)
	}
	return r.g.f.renderPasses[p.renderPass]
}
