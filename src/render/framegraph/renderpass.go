package framegraph

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
)

// AttachmentInfo is one attachment of a derived render pass.
type AttachmentInfo struct {
	Image         ImageHandle
	Kind          AccessKind
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	Load          vk.AttachmentLoadOp
	Store         vk.AttachmentStoreOp
	StencilLoad   vk.AttachmentLoadOp
	StencilStore  vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	Layout        vk.ImageLayout
	FinalLayout   vk.ImageLayout
	Clear         vk.ClearValue
}

// RenderPassInfo is a single-subpass render pass derived for one graphics
// pass.
type RenderPassInfo struct {
	Name        string
	Attachments []AttachmentInfo
	Color       []uint32
	Input       []uint32
	// Depth indexes Attachments, -1 without a depth attachment.
	Depth int
	// External carries the dependencies folded in from the previous
	// graphics pass; nil when nothing was folded.
	External *vk.SubpassDependency
	Extent   vk.Extent2D
	Layers   uint32
}

func (rp *RenderPassInfo) Clears() []vk.ClearValue {
	out := make([]vk.ClearValue, len(rp.Attachments))
	for i, a := range rp.Attachments {
		out[i] = a.Clear
	}
	return out
}

// VulkanAttachments converts the attachments to Vulkan descriptions.
func (rp *RenderPassInfo) VulkanAttachments() []vk.AttachmentDescription {
	out := make([]vk.AttachmentDescription, len(rp.Attachments))
	for i, a := range rp.Attachments {
		out[i] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        a.Samples,
			LoadOp:         a.Load,
			StoreOp:        a.Store,
			StencilLoadOp:  a.StencilLoad,
			StencilStoreOp: a.StencilStore,
			InitialLayout:  a.InitialLayout,
			FinalLayout:    a.FinalLayout,
		}
	}
	return out
}

func (rp *RenderPassInfo) refs(idx []uint32) []vk.AttachmentReference {
	if len(idx) == 0 {
		return nil
	}
	out := make([]vk.AttachmentReference, len(idx))
	for i, j := range idx {
		out[i] = vk.AttachmentReference{Attachment: j, Layout: rp.Attachments[j].Layout}
	}
	return out
}

// VulkanSubpass describes the single graphics subpass.
func (rp *RenderPassInfo) VulkanSubpass() vk.SubpassDescription {
	color := rp.refs(rp.Color)
	input := rp.refs(rp.Input)
	sd := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(color)),
		PColorAttachments:    color,
		InputAttachmentCount: uint32(len(input)),
		PInputAttachments:    input,
	}
	if rp.Depth >= 0 {
		sd.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(rp.Depth),
			Layout:     rp.Attachments[rp.Depth].Layout,
		}
	}
	return sd
}

// prevOnQueue maps each surviving pass to the surviving pass submitted
// right before it on the same queue, or -1.
func (f *frame) prevOnQueue() []PassID {
	out := make([]PassID, len(f.passes))
	var last [queueCount]PassID
	for q := range last {
		last[q] = -1
	}
	for i := range f.passes {
		out[i] = -1
		p := &f.passes[i]
		if !p.alive() {
			continue
		}
		out[i] = last[p.queue]
		last[p.queue] = PassID(i)
	}
	return out
}

// foldable reports whether d can be carried by the consumer's render pass:
// both accesses are attachments of back-to-back graphics passes on one queue.
func (f *frame) foldable(d *Dependency, prev []PassID) bool {
	return d.Image.Valid() &&
		!d.crossQueue() &&
		f.passes[d.Producer].kind == PassGraphics &&
		f.passes[d.Consumer].kind == PassGraphics &&
		prev[d.Consumer] == d.Producer &&
		d.Before.Kind.IsAttachment() && d.After.Kind.IsAttachment()
}

// deriveRenderPasses builds a render pass and framebuffer for every
// surviving graphics pass.
func (g *Graph) deriveRenderPasses(prev []PassID) {
	f := g.f
	n, folded := 0, 0
	for i := range f.passes {
		p := &f.passes[i]
		if !p.alive() || p.kind != PassGraphics {
			continue
		}
		info := &RenderPassInfo{Name: p.name, Depth: -1}
		for _, r := range append(append([]resourceRef(nil), p.writes...), p.reads...) {
			if r.buffer {
				continue
			}
			folded += g.addAttachment(info, PassID(i), r.image(), prev)
		}
		if len(info.Attachments) == 0 {
			info.Extent = vk.Extent2D{Width: 1, Height: 1}
			info.Layers = 1
		}

		rp, err := g.dev.CreateRenderPass(info)
		render.OrPanic(errors.Wrapf(err, "framegraph: create render pass for %q", p.name))
		views := make([]vk.ImageView, len(info.Attachments))
		for j, a := range info.Attachments {
			views[j] = f.physImages[f.images[a.Image.index()].physical].View
		}
		fb, err := g.dev.CreateFramebuffer(rp, views, info.Extent, info.Layers)
		render.OrPanic(errors.Wrapf(err, "framegraph: create framebuffer for %q", p.name))

		p.plan.RenderPass = info
		p.plan.renderPass = len(f.renderPasses)
		p.plan.framebuffer = len(f.framebuffers)
		f.renderPasses = append(f.renderPasses, rp)
		f.framebuffers = append(f.framebuffers, fb)
		g.owned.RenderPasses = append(g.owned.RenderPasses, rp)
		g.owned.Framebuffers = append(g.owned.Framebuffers, fb)
		n++
	}
	g.log.Debug("derive render passes", "render_passes", n, "folded", folded)
}

// addAttachment appends h to info if pass accesses it as an attachment and
// returns the number of dependencies folded into the render pass.
func (g *Graph) addAttachment(info *RenderPassInfo, id PassID, h ImageHandle, prev []PassID) int {
	f := g.f
	vi := &f.images[h.index()]
	st := f.liveStages(vi.stages)
	pos := -1
	for j := range st {
		if st[j].Pass == id {
			pos = j
			break
		}
	}
	cur := st[pos]
	if !cur.Kind.IsAttachment() {
		return 0
	}

	first, last := pos == 0, pos == len(st)-1
	backBuffer := h == f.backBuffer

	a := AttachmentInfo{
		Image:         h,
		Kind:          cur.Kind,
		Format:        vi.desc.Format,
		Samples:       vi.desc.Samples,
		Load:          vk.AttachmentLoadOpLoad,
		Store:         vk.AttachmentStoreOpStore,
		InitialLayout: cur.Layout,
		Layout:        cur.Layout,
		FinalLayout:   cur.Layout,
		Clear:         VulkanClearValue(vi.desc.Clear),
	}
	persistent := vi.initial != vk.ImageLayoutUndefined
	if first {
		a.InitialLayout = vi.initial
		switch {
		case vi.desc.Initial == InitialClear:
			a.Load = vk.AttachmentLoadOpClear
		case !persistent:
			a.Load = vk.AttachmentLoadOpDontCare
		}
	}
	if last {
		if !backBuffer && !vi.imported {
			a.Store = vk.AttachmentStoreOpDontCare
		}
		switch {
		case backBuffer:
			a.FinalLayout = vk.ImageLayoutPresentSrc
		case persistent:
			a.FinalLayout = vi.initial
		}
	}
	a.StencilLoad, a.StencilStore = vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpDontCare
	if HasStencil(vi.desc.Format) {
		a.StencilLoad, a.StencilStore = a.Load, a.Store
	}

	folded := 0
	deps := f.passes[id].plan.Deps
	for j := range deps {
		d := &deps[j]
		if d.Image != h || !f.foldable(d, prev) {
			continue
		}
		d.Sync = SyncRenderPass
		a.InitialLayout = d.Before.Layout
		if info.External == nil {
			info.External = &vk.SubpassDependency{
				SrcSubpass: vk.SubpassExternal,
				DstSubpass: 0,
			}
		}
		info.External.SrcStageMask |= d.Before.Stages
		info.External.DstStageMask |= d.After.Stages
		info.External.SrcAccessMask |= d.Before.writeAccess()
		info.External.DstAccessMask |= d.After.Access
		folded++
	}
	if first && backBuffer && f.present != nil {
		// The layout transition out of UNDEFINED has to wait for the
		// swapchain acquire, which the submission waits on at these stages.
		if info.External == nil {
			info.External = &vk.SubpassDependency{SrcSubpass: vk.SubpassExternal}
		}
		info.External.SrcStageMask |= cur.Stages
		info.External.DstStageMask |= cur.Stages
		info.External.DstAccessMask |= cur.Access
	}

	idx := uint32(len(info.Attachments))
	switch cur.Kind {
	case AccessColorAttachment:
		info.Color = append(info.Color, idx)
	case AccessInputAttachment:
		info.Input = append(info.Input, idx)
	case AccessDepthStencilWrite, AccessDepthStencilRead:
		if info.Depth >= 0 {
			g.fatalf("pass %q has more than one depth-stencil attachment", info.Name)
		}
		info.Depth = int(idx)
	}

	if len(info.Attachments) == 0 {
		info.Extent = vi.desc.Extent()
		info.Layers = vi.desc.Layers
	} else if info.Extent.Width != vi.desc.Width || info.Extent.Height != vi.desc.Height {
		g.fatalf("pass %q: attachment %q is %dx%d, render area is %dx%d", info.Name, vi.desc.Name,
			vi.desc.Width, vi.desc.Height, info.Extent.Width, info.Extent.Height)
	} else if vi.desc.Layers < info.Layers {
		info.Layers = vi.desc.Layers
	}
	info.Attachments = append(info.Attachments, a)
	return folded
}
