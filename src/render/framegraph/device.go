package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// Device is the backend the graph allocates from and submits to. Any
// returned error is treated as unrecoverable.
type Device interface {
	// QueueFamily is the family index backing q.
	QueueFamily(q Queue) uint32

	CreateImage(desc *ImageDesc, usage vk.ImageUsageFlags) (PhysicalImage, error)
	CreateBuffer(desc *BufferDesc, usage vk.BufferUsageFlags) (PhysicalBuffer, error)
	CreateRenderPass(info *RenderPassInfo) (vk.RenderPass, error)
	CreateFramebuffer(rp vk.RenderPass, views []vk.ImageView, extent vk.Extent2D, layers uint32) (vk.Framebuffer, error)
	CreateEvent(name string) (vk.Event, error)
	CreateSemaphore(name string) (vk.Semaphore, error)

	// WriteBuffer copies data into a host-visible buffer.
	WriteBuffer(buf PhysicalBuffer, offset uint64, data []byte) error

	// BeginCommands returns a command buffer in the recording state.
	BeginCommands(q Queue, name string) (CommandBuffer, error)
	// Submit ends the command buffer and submits it.
	Submit(s *Submission) error
	Present(p *PresentParams, wait vk.Semaphore) error
}

// CommandBuffer is the subset of command recording the graph performs
// itself. Record closures use Raw for everything else.
type CommandBuffer interface {
	Raw() vk.CommandBuffer

	PipelineBarrier(b *PipelineBarrier)
	WaitEvent(ev vk.Event, b *PipelineBarrier)
	SetEvent(ev vk.Event, stages vk.PipelineStageFlags)

	BeginRenderPass(b *RenderPassBegin)
	EndRenderPass()

	BlitImage(src, dst vk.Image, regions []vk.ImageBlit, filter vk.Filter)
	ClearImage(img vk.Image, rng vk.ImageSubresourceRange, clear ClearValue)
	FillBuffer(buf vk.Buffer, size uint64, word uint32)
}

type SubmitWait struct {
	Semaphore vk.Semaphore
	Stages    vk.PipelineStageFlags
}

type Submission struct {
	Queue    Queue
	Name     string
	Commands CommandBuffer
	Waits    []SubmitWait
	Signals  []vk.Semaphore
}

type RenderPassBegin struct {
	RenderPass  vk.RenderPass
	Framebuffer vk.Framebuffer
	Extent      vk.Extent2D
	Clears      []vk.ClearValue
}

// PresentParams describe where the back buffer goes after the frame.
type PresentParams struct {
	Swapchain  vk.Swapchain
	ImageIndex uint32
	Queue      Queue
	// Wait is signaled when the swapchain image is acquired. A null Wait
	// means the caller already waited.
	Wait vk.Semaphore
}
