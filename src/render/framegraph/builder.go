package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// PassBuilder declares the resources of one pass. It is only valid inside
// the pass's setup closure.
type PassBuilder struct {
	g    *Graph
	pass PassID
}

func (b *PassBuilder) Pass() PassID { return b.pass }

// CreateImage declares a new virtual image.
func (b *PassBuilder) CreateImage(desc ImageDesc) ImageHandle {
	return b.g.newImage(desc)
}

// CreateBuffer declares a new virtual buffer.
func (b *PassBuilder) CreateBuffer(desc BufferDesc) BufferHandle {
	return b.g.newBuffer(desc)
}

func (b *PassBuilder) WriteColorAttachment(h ImageHandle) ImageHandle {
	b.use(imageRef(h), AccessColorAttachment, 0)
	return h
}

func (b *PassBuilder) ReadInputAttachment(h ImageHandle) ImageHandle {
	b.use(imageRef(h), AccessInputAttachment, 0)
	return h
}

func (b *PassBuilder) WriteDepthStencil(h ImageHandle) ImageHandle {
	b.use(imageRef(h), AccessDepthStencilWrite, 0)
	return h
}

func (b *PassBuilder) ReadDepthStencil(h ImageHandle) ImageHandle {
	b.use(imageRef(h), AccessDepthStencilRead, 0)
	return h
}

// ReadTexture samples h in the given stages. A zero mask means the fragment
// stage, or the compute stage in a compute pass.
func (b *PassBuilder) ReadTexture(h ImageHandle, stages vk.PipelineStageFlags) ImageHandle {
	b.use(imageRef(h), AccessTexture, stages)
	return h
}

func (b *PassBuilder) ReadStorageImage(h ImageHandle, stages vk.PipelineStageFlags) ImageHandle {
	b.use(imageRef(h), AccessStorageImageRead, stages)
	return h
}

func (b *PassBuilder) WriteStorageImage(h ImageHandle, stages vk.PipelineStageFlags) ImageHandle {
	b.use(imageRef(h), AccessStorageImageWrite, stages)
	return h
}

func (b *PassBuilder) ReadStorageBuffer(h BufferHandle, stages vk.PipelineStageFlags) BufferHandle {
	b.use(bufferRef(h), AccessStorageBufferRead, stages)
	return h
}

func (b *PassBuilder) WriteStorageBuffer(h BufferHandle, stages vk.PipelineStageFlags) BufferHandle {
	b.use(bufferRef(h), AccessStorageBufferWrite, stages)
	return h
}

func (b *PassBuilder) ReadUniformBuffer(h BufferHandle, stages vk.PipelineStageFlags) BufferHandle {
	b.use(bufferRef(h), AccessUniformBuffer, stages)
	return h
}

func (b *PassBuilder) ReadVertexBuffer(h BufferHandle) BufferHandle {
	b.use(bufferRef(h), AccessVertexBuffer, 0)
	return h
}

func (b *PassBuilder) ReadIndexBuffer(h BufferHandle) BufferHandle {
	b.use(bufferRef(h), AccessIndexBuffer, 0)
	return h
}

func (b *PassBuilder) ReadIndirectBuffer(h BufferHandle) BufferHandle {
	b.use(bufferRef(h), AccessIndirectBuffer, 0)
	return h
}

func (b *PassBuilder) ReadTransferSrc(h BufferHandle) BufferHandle {
	b.use(bufferRef(h), AccessTransferSrc, 0)
	return h
}

func (b *PassBuilder) WriteTransferDst(h BufferHandle) BufferHandle {
	b.use(bufferRef(h), AccessTransferDst, 0)
	return h
}

// UseImage declares an access of any image kind, for callers that pick
// the kind at run time.
func (b *PassBuilder) UseImage(h ImageHandle, kind AccessKind, stages vk.PipelineStageFlags) ImageHandle {
	b.use(imageRef(h), kind, stages)
	return h
}

// UseBuffer is UseImage for buffers. Host writes are declared with
// AddHostWritePass only.
func (b *PassBuilder) UseBuffer(h BufferHandle, kind AccessKind, stages vk.PipelineStageFlags) BufferHandle {
	if kind == AccessHostWrite {
		b.g.fatalf("pass %q: host writes need AddHostWritePass", b.g.f.passes[b.pass].name)
	}
	b.use(bufferRef(h), kind, stages)
	return h
}

// use appends one stage to the resource's timeline and the resource to
// the pass's read or write list.
func (b *PassBuilder) use(r resourceRef, kind AccessKind, stages vk.PipelineStageFlags) {
	g := b.g
	g.mustDeclare("declaring access")
	p := &g.f.passes[b.pass]

	if kind == AccessNone || kind >= accessKindCount {
		g.fatalf("pass %q: invalid access kind %d", p.name, kind)
	}
	if kind.IsImage() == r.buffer {
		g.fatalf("pass %q: access %s used on the wrong resource kind", p.name, kind)
	}
	if kind.IsAttachment() && p.kind != PassGraphics {
		g.fatalf("pass %q: %s access outside a graphics pass", p.name, kind)
	}

	var timeline *[]ResourceStage
	var name string
	if r.buffer {
		g.checkBuffer(r.buf())
		vb := &g.f.buffers[r.index]
		timeline, name = &vb.stages, vb.desc.Name
	} else {
		g.checkImage(r.image())
		vi := &g.f.images[r.index]
		timeline, name = &vi.stages, vi.desc.Name
	}

	if p.declared(r) {
		g.fatalf("pass %q declares resource %q twice", p.name, name)
	}

	st := newStage(b.pass, p.kind, kind, stages)
	*timeline = append(*timeline, st)
	if st.Write {
		p.writes = append(p.writes, r)
	} else {
		p.reads = append(p.reads, r)
	}
}
