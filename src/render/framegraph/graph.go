package framegraph

import (
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
)

type frameState uint8

const (
	stateDeclaring frameState = iota
	stateCompiled
	stateExecuted
)

// frame is all per-frame state. Reset swaps in a fresh one, so nothing
// declared in one frame can leak into the next.
type frame struct {
	state      frameState
	passes     []pass
	images     []virtualImage
	buffers    []virtualBuffer
	backBuffer ImageHandle
	present    *PresentParams

	physImages   []PhysicalImage
	physBuffers  []PhysicalBuffer
	renderPasses []vk.RenderPass
	framebuffers []vk.Framebuffer
	events       []vk.Event
	semaphores   []vk.Semaphore
	presentSem   int
}

func newFrame() *frame {
	return &frame{presentSem: -1}
}

// FrameResources are the physical objects a Graph created. The caller
// destroys them once the GPU work using them has completed.
type FrameResources struct {
	Images       []PhysicalImage
	Buffers      []PhysicalBuffer
	RenderPasses []vk.RenderPass
	Framebuffers []vk.Framebuffer
	Events       []vk.Event
	Semaphores   []vk.Semaphore
}

func (r *FrameResources) Empty() bool {
	return len(r.Images) == 0 && len(r.Buffers) == 0 && len(r.RenderPasses) == 0 &&
		len(r.Framebuffers) == 0 && len(r.Events) == 0 && len(r.Semaphores) == 0
}

// Graph is a frame graph bound to one device.
type Graph struct {
	ctx   *render.Context
	dev   Device
	log   *slog.Logger
	f     *frame
	owned FrameResources
}

// New creates an empty graph. A nil ctx uses the default configuration.
func New(ctx *render.Context, dev Device) *Graph {
	if ctx == nil {
		ctx = render.NewContext(nil)
	}
	if dev == nil {
		panic("framegraph: nil device")
	}
	return &Graph{
		ctx: ctx,
		dev: dev,
		log: ctx.Logger().With("component", "framegraph"),
		f:   newFrame(),
	}
}

// Reset drops every declaration of the current frame. Physical objects
// already created stay owned by the graph until Retire.
func (g *Graph) Reset() {
	g.f = newFrame()
}

// Retire hands over every physical object created since the last Retire.
func (g *Graph) Retire() *FrameResources {
	out := g.owned
	g.owned = FrameResources{}
	g.log.Info("retire", "images", len(out.Images), "buffers", len(out.Buffers),
		"render_passes", len(out.RenderPasses), "events", len(out.Events), "semaphores", len(out.Semaphores))
	return &out
}

func (g *Graph) fatalf(format string, args ...any) {
	msg := fmt.Sprintf("framegraph: "+format, args...)
	g.log.Error(msg)
	panic(msg)
}

func (g *Graph) mustDeclare(what string) {
	if g.f.state != stateDeclaring {
		g.fatalf("%s after Compile; call Reset first", what)
	}
}

func (g *Graph) addPass(name string, kind PassKind, q Queue) PassID {
	g.mustDeclare("adding pass " + name)
	if len(g.f.passes) >= g.ctx.Config.MaxPasses {
		g.fatalf("pass %q exceeds capacity of %d passes", name, g.ctx.Config.MaxPasses)
	}
	if q >= queueCount {
		g.fatalf("pass %q: unknown queue %d", name, q)
	}
	g.f.passes = append(g.f.passes, pass{name: name, kind: kind, queue: q})
	return PassID(len(g.f.passes) - 1)
}

func (g *Graph) setup(id PassID, fn SetupFunc) {
	var rec RecordFunc
	if fn != nil {
		rec = fn(&PassBuilder{g: g, pass: id})
	}
	g.f.passes[id].record = rec
}

// AddGraphicsPass declares a pass on the graphics queue. Its attachments
// are gathered into a render pass.
func (g *Graph) AddGraphicsPass(name string, setup SetupFunc) PassID {
	id := g.addPass(name, PassGraphics, QueueGraphics)
	g.setup(id, setup)
	return id
}

func (g *Graph) AddComputePass(name string, q Queue, setup SetupFunc) PassID {
	id := g.addPass(name, PassCompute, q)
	g.setup(id, setup)
	return id
}

// AddBlitPass copies regions of src into dst.
func (g *Graph) AddBlitPass(name string, q Queue, src, dst ImageHandle, regions []vk.ImageBlit, filter vk.Filter) PassID {
	id := g.addPass(name, PassBlit, q)
	b := &PassBuilder{g: g, pass: id}
	b.use(imageRef(src), AccessBlitSrc, 0)
	b.use(imageRef(dst), AccessBlitDst, 0)
	regions = append([]vk.ImageBlit(nil), regions...)
	g.f.passes[id].record = RecordFunc(func(cmd CommandBuffer, reg *Registry) {
		cmd.BlitImage(reg.Image(src).Image, reg.Image(dst).Image, regions, filter)
	})
	return id
}

// AddClearPass clears img to the clear value of its description.
func (g *Graph) AddClearPass(name string, q Queue, img ImageHandle) PassID {
	id := g.addPass(name, PassClear, q)
	b := &PassBuilder{g: g, pass: id}
	b.use(imageRef(img), AccessClear, 0)
	g.f.passes[id].record = RecordFunc(func(cmd CommandBuffer, reg *Registry) {
		desc := reg.ImageDesc(img)
		cmd.ClearImage(reg.Image(img).Image, desc.Range(), desc.Clear)
	})
	return id
}

// AddClearBufferPass fills buf with the ClearWord of its description.
func (g *Graph) AddClearBufferPass(name string, q Queue, buf BufferHandle) PassID {
	id := g.addPass(name, PassClear, q)
	b := &PassBuilder{g: g, pass: id}
	b.use(bufferRef(buf), AccessTransferDst, 0)
	g.f.passes[id].record = RecordFunc(func(cmd CommandBuffer, reg *Registry) {
		var word uint32
		if w, ok := reg.BufferDesc(buf).Clear.(ClearWord); ok {
			word = uint32(w)
		}
		pb := reg.Buffer(buf)
		// vkCmdFillBuffer writes whole words only.
		cmd.FillBuffer(pb.Buffer, pb.Size&^3, word)
	})
	return id
}

// AddHostWritePass writes data into a host-visible buffer when the frame
// executes. The write happens on the CPU before the pass's submission.
func (g *Graph) AddHostWritePass(name string, q Queue, buf BufferHandle, offset uint64, data []byte) PassID {
	id := g.addPass(name, PassHostWrite, q)
	b := &PassBuilder{g: g, pass: id}
	b.use(bufferRef(buf), AccessHostWrite, 0)
	if !g.f.buffers[buf.index()].desc.HostVisible {
		g.fatalf("pass %q: host write to buffer %q which is not host visible", name, g.f.buffers[buf.index()].desc.Name)
	}
	p := &g.f.passes[id]
	p.hostBuffer = buf
	p.hostOffset = offset
	p.hostData = append([]byte(nil), data...)
	return id
}

func (g *Graph) newImage(desc ImageDesc) ImageHandle {
	g.mustDeclare("creating image " + desc.Name)
	if len(g.f.images) >= g.ctx.Config.MaxResources {
		g.fatalf("image %q exceeds capacity of %d images", desc.Name, g.ctx.Config.MaxResources)
	}
	desc.normalize()
	g.f.images = append(g.f.images, virtualImage{desc: desc, physical: noPhysical})
	return ImageHandle(len(g.f.images))
}

func (g *Graph) newBuffer(desc BufferDesc) BufferHandle {
	g.mustDeclare("creating buffer " + desc.Name)
	if len(g.f.buffers) >= g.ctx.Config.MaxResources {
		g.fatalf("buffer %q exceeds capacity of %d buffers", desc.Name, g.ctx.Config.MaxResources)
	}
	desc.normalize()
	g.f.buffers = append(g.f.buffers, virtualBuffer{desc: desc, physical: noPhysical})
	return BufferHandle(len(g.f.buffers))
}

// CreateImage declares an image outside any pass, for use by passes
// declared later such as blits and clears.
func (g *Graph) CreateImage(desc ImageDesc) ImageHandle { return g.newImage(desc) }

func (g *Graph) CreateBuffer(desc BufferDesc) BufferHandle { return g.newBuffer(desc) }

// ImportImage registers an image the graph does not own, such as a
// swapchain image. Its contents are undefined at the start of the frame.
func (g *Graph) ImportImage(desc ImageDesc, img PhysicalImage) ImageHandle {
	return g.ImportImageLayout(desc, img, vk.ImageLayoutUndefined)
}

// ImportImageLayout registers an image whose contents persist across
// frames, such as a history buffer. The image is in layout when the frame
// starts and is returned to it after its last use.
func (g *Graph) ImportImageLayout(desc ImageDesc, img PhysicalImage, layout vk.ImageLayout) ImageHandle {
	h := g.newImage(desc)
	vi := &g.f.images[h.index()]
	vi.imported = true
	vi.initial = layout
	vi.physical = len(g.f.physImages)
	g.f.physImages = append(g.f.physImages, img)
	return h
}

// ImportBuffer registers a buffer the graph does not own.
func (g *Graph) ImportBuffer(desc BufferDesc, buf PhysicalBuffer) BufferHandle {
	h := g.newBuffer(desc)
	vb := &g.f.buffers[h.index()]
	vb.imported = true
	vb.physical = len(g.f.physBuffers)
	g.f.physBuffers = append(g.f.physBuffers, buf)
	return h
}

// SetBackBuffer designates the frame's output, implicitly read at frame end.
func (g *Graph) SetBackBuffer(h ImageHandle) {
	g.mustDeclare("setting back buffer")
	g.checkImage(h)
	g.f.backBuffer = h
}

func (g *Graph) BackBuffer() ImageHandle { return g.f.backBuffer }

// SetPresentParams makes Execute present the back buffer.
func (g *Graph) SetPresentParams(swapchain vk.Swapchain, imageIndex uint32, q Queue, wait vk.Semaphore) {
	g.mustDeclare("setting present params")
	g.f.present = &PresentParams{Swapchain: swapchain, ImageIndex: imageIndex, Queue: q, Wait: wait}
}

func (g *Graph) checkImage(h ImageHandle) {
	if !h.Valid() || h.index() >= len(g.f.images) {
		g.fatalf("dangling image handle %d", uint32(h))
	}
}

func (g *Graph) checkBuffer(h BufferHandle) {
	if !h.Valid() || h.index() >= len(g.f.buffers) {
		g.fatalf("dangling buffer handle %d", uint32(h))
	}
}

// ImageDesc returns the description of a declared image.
func (g *Graph) ImageDesc(h ImageHandle) ImageDesc {
	g.checkImage(h)
	return g.f.images[h.index()].desc
}

func (g *Graph) BufferDesc(h BufferHandle) BufferDesc {
	g.checkBuffer(h)
	return g.f.buffers[h.index()].desc
}

// ImageStages returns a copy of the image's access timeline.
func (g *Graph) ImageStages(h ImageHandle) []ResourceStage {
	g.checkImage(h)
	return append([]ResourceStage(nil), g.f.images[h.index()].stages...)
}

func (g *Graph) BufferStages(h BufferHandle) []ResourceStage {
	g.checkBuffer(h)
	return append([]ResourceStage(nil), g.f.buffers[h.index()].stages...)
}

// ImageRefs and BufferRefs expose the reference counts left by culling.
func (g *Graph) ImageRefs(h ImageHandle) int {
	g.checkImage(h)
	return g.f.images[h.index()].refs
}

func (g *Graph) BufferRefs(h BufferHandle) int {
	g.checkBuffer(h)
	return g.f.buffers[h.index()].refs
}

func (g *Graph) PassCount() int { return len(g.f.passes) }

// PassAlive reports whether the pass survived culling.
func (g *Graph) PassAlive(id PassID) bool {
	if id < 0 || int(id) >= len(g.f.passes) {
		g.fatalf("unknown pass %d", id)
	}
	return g.f.passes[id].alive()
}

// Allocated reports whether the image is backed by a physical image.
func (g *Graph) Allocated(h ImageHandle) bool {
	g.checkImage(h)
	return g.f.images[h.index()].physical != noPhysical
}

func (g *Graph) BufferAllocated(h BufferHandle) bool {
	g.checkBuffer(h)
	return g.f.buffers[h.index()].physical != noPhysical
}

func (g *Graph) family(q Queue) uint32 { return g.dev.QueueFamily(q) }
