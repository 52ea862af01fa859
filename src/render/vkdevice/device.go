// Package vkdevice implements framegraph.Device on a Vulkan logical
// device.
package vkdevice

import (
	"log/slog"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
)

type queueState struct {
	family uint32
	queue  vk.Queue
	pool   vk.CommandPool
	// command buffers handed out since the last ResetCommands
	cmds []vk.CommandBuffer
}

// Device wraps a vk.Device the caller created. It owns one command pool
// per logical queue; everything else it creates is handed to the frame
// graph and destroyed through Release.
type Device struct {
	dev      vk.Device
	memProps vk.PhysicalDeviceMemoryProperties
	queues   [3]queueState
	outdated bool
	log      *slog.Logger
}

// New gets the queues of the configured families and creates their
// command pools.
func New(ctx *render.Context, gpu vk.PhysicalDevice, dev vk.Device) (d *Device, err error) {
	defer render.CheckError(&err)

	d = &Device{dev: dev, log: ctx.Logger().With("component", "vkdevice")}
	vk.GetPhysicalDeviceMemoryProperties(gpu, &d.memProps)
	d.memProps.Deref()

	fams := ctx.Families()
	for q, family := range [3]uint32{fams.Graphics, fams.Compute, fams.Transfer} {
		qs := &d.queues[q]
		qs.family = family
		vk.GetDeviceQueue(dev, family, 0, &qs.queue)

		ret := vk.CreateCommandPool(dev, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
			QueueFamilyIndex: family,
		}, nil, &qs.pool)
		render.OrPanic(errors.Wrapf(render.NewError(ret), "vkdevice: command pool for %s", framegraph.Queue(q)), d.Destroy)
	}
	d.log.Info("device ready", "graphics", fams.Graphics, "compute", fams.Compute, "transfer", fams.Transfer)
	return d, nil
}

func (d *Device) QueueFamily(q framegraph.Queue) uint32 {
	return d.queues[q].family
}

// Outdated reports whether the last present found the swapchain out of
// date, and clears the flag.
func (d *Device) Outdated() bool {
	o := d.outdated
	d.outdated = false
	return o
}

// ResetCommands recycles every command buffer handed out so far. The
// caller must know they have finished executing.
func (d *Device) ResetCommands() error {
	for q := range d.queues {
		qs := &d.queues[q]
		if len(qs.cmds) == 0 {
			continue
		}
		vk.FreeCommandBuffers(d.dev, qs.pool, uint32(len(qs.cmds)), qs.cmds)
		qs.cmds = qs.cmds[:0]
		if err := render.NewError(vk.ResetCommandPool(d.dev, qs.pool, 0)); err != nil {
			return errors.Wrapf(err, "vkdevice: reset %s command pool", framegraph.Queue(q))
		}
	}
	return nil
}

// Release destroys what a graph retired. Imported resources are never in
// res, so they stay alive.
func (d *Device) Release(res *framegraph.FrameResources) {
	for _, fb := range res.Framebuffers {
		vk.DestroyFramebuffer(d.dev, fb, nil)
	}
	for _, rp := range res.RenderPasses {
		vk.DestroyRenderPass(d.dev, rp, nil)
	}
	for _, img := range res.Images {
		vk.DestroyImageView(d.dev, img.View, nil)
		vk.DestroyImage(d.dev, img.Image, nil)
		vk.FreeMemory(d.dev, img.Memory, nil)
	}
	for _, buf := range res.Buffers {
		vk.DestroyBuffer(d.dev, buf.Buffer, nil)
		vk.FreeMemory(d.dev, buf.Memory, nil)
	}
	for _, ev := range res.Events {
		vk.DestroyEvent(d.dev, ev, nil)
	}
	for _, s := range res.Semaphores {
		vk.DestroySemaphore(d.dev, s, nil)
	}
	d.log.Debug("release", "images", len(res.Images), "buffers", len(res.Buffers),
		"render_passes", len(res.RenderPasses), "events", len(res.Events), "semaphores", len(res.Semaphores))
}

// Destroy frees the command pools. The vk.Device stays the caller's.
func (d *Device) Destroy() {
	for q := range d.queues {
		qs := &d.queues[q]
		if qs.pool != vk.CommandPool(vk.NullHandle) {
			vk.DestroyCommandPool(d.dev, qs.pool, nil)
			qs.pool = vk.CommandPool(vk.NullHandle)
		}
		qs.cmds = nil
	}
}

var _ framegraph.Device = (*Device)(nil)
