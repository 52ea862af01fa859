package vkdevice

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
)

// commands records into one primary command buffer.
type commands struct {
	cb vk.CommandBuffer
}

func (c *commands) Raw() vk.CommandBuffer { return c.cb }

func (c *commands) PipelineBarrier(b *framegraph.PipelineBarrier) {
	src, dst := b.StageMasks()
	mem := b.VulkanMemoryBarriers()
	bufs := b.VulkanBufferBarriers()
	imgs := b.VulkanImageBarriers()
	vk.CmdPipelineBarrier(c.cb, src, dst, 0,
		uint32(len(mem)), mem,
		uint32(len(bufs)), bufs,
		uint32(len(imgs)), imgs)
}

func (c *commands) WaitEvent(ev vk.Event, b *framegraph.PipelineBarrier) {
	src, dst := b.StageMasks()
	mem := b.VulkanMemoryBarriers()
	bufs := b.VulkanBufferBarriers()
	imgs := b.VulkanImageBarriers()
	vk.CmdWaitEvents(c.cb, 1, []vk.Event{ev}, src, dst,
		uint32(len(mem)), mem,
		uint32(len(bufs)), bufs,
		uint32(len(imgs)), imgs)
}

func (c *commands) SetEvent(ev vk.Event, stages vk.PipelineStageFlags) {
	vk.CmdSetEvent(c.cb, ev, stages)
}

func (c *commands) BeginRenderPass(b *framegraph.RenderPassBegin) {
	vk.CmdBeginRenderPass(c.cb, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  b.RenderPass,
		Framebuffer: b.Framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: b.Extent,
		},
		ClearValueCount: uint32(len(b.Clears)),
		PClearValues:    b.Clears,
	}, vk.SubpassContentsInline)
}

func (c *commands) EndRenderPass() {
	vk.CmdEndRenderPass(c.cb)
}

func (c *commands) BlitImage(src, dst vk.Image, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(c.cb, src, vk.ImageLayoutTransferSrcOptimal, dst, vk.ImageLayoutTransferDstOptimal,
		uint32(len(regions)), regions, filter)
}

func (c *commands) ClearImage(img vk.Image, rng vk.ImageSubresourceRange, clear framegraph.ClearValue) {
	ranges := []vk.ImageSubresourceRange{rng}
	switch v := clear.(type) {
	case framegraph.ClearDepthStencil:
		vk.CmdClearDepthStencilImage(c.cb, img, vk.ImageLayoutTransferDstOptimal,
			&vk.ClearDepthStencilValue{Depth: v.Depth, Stencil: v.Stencil}, 1, ranges)
	case framegraph.ClearColor:
		var color vk.ClearColorValue
		*(*[4]float32)(unsafe.Pointer(&color)) = [4]float32(v)
		vk.CmdClearColorImage(c.cb, img, vk.ImageLayoutTransferDstOptimal, &color, 1, ranges)
	default:
		var color vk.ClearColorValue
		vk.CmdClearColorImage(c.cb, img, vk.ImageLayoutTransferDstOptimal, &color, 1, ranges)
	}
}

func (c *commands) FillBuffer(buf vk.Buffer, size uint64, word uint32) {
	vk.CmdFillBuffer(c.cb, buf, 0, vk.DeviceSize(size), word)
}

func (d *Device) BeginCommands(q framegraph.Queue, name string) (framegraph.CommandBuffer, error) {
	qs := &d.queues[q]
	cbs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(d.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        qs.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cbs)
	if err := render.NewError(ret); err != nil {
		return nil, errors.Wrapf(err, "vkdevice: allocate command buffer for %q", name)
	}
	qs.cmds = append(qs.cmds, cbs[0])

	ret = vk.BeginCommandBuffer(cbs[0], &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := render.NewError(ret); err != nil {
		return nil, errors.Wrapf(err, "vkdevice: begin command buffer for %q", name)
	}
	return &commands{cb: cbs[0]}, nil
}

func (d *Device) Submit(s *framegraph.Submission) error {
	c, ok := s.Commands.(*commands)
	if !ok {
		return errors.Errorf("vkdevice: foreign command buffer in %q", s.Name)
	}
	if err := render.NewError(vk.EndCommandBuffer(c.cb)); err != nil {
		return errors.Wrapf(err, "vkdevice: end command buffer for %q", s.Name)
	}

	waits := make([]vk.Semaphore, len(s.Waits))
	stages := make([]vk.PipelineStageFlags, len(s.Waits))
	for i, w := range s.Waits {
		waits[i] = w.Semaphore
		stages[i] = w.Stages
	}
	var nullFence vk.Fence
	ret := vk.QueueSubmit(d.queues[s.Queue].queue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{c.cb},
		SignalSemaphoreCount: uint32(len(s.Signals)),
		PSignalSemaphores:    s.Signals,
	}}, nullFence)
	return errors.Wrapf(render.NewError(ret), "vkdevice: submit %q", s.Name)
}

// Present queues the back buffer. An out-of-date swapchain is not an
// error; it is reported by Outdated.
func (d *Device) Present(p *framegraph.PresentParams, wait vk.Semaphore) error {
	ret := vk.QueuePresent(d.queues[p.Queue].queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{p.Swapchain},
		PImageIndices:      []uint32{p.ImageIndex},
	})
	switch ret {
	case vk.ErrorOutOfDate:
		d.outdated = true
		return nil
	case vk.Suboptimal, vk.Success:
		return nil
	}
	return errors.Wrap(render.NewError(ret), "vkdevice: present")
}
