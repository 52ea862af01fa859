package vkdevice

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
)

func (d *Device) CreateRenderPass(info *framegraph.RenderPassInfo) (vk.RenderPass, error) {
	atts := info.VulkanAttachments()
	ci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{info.VulkanSubpass()},
	}
	if info.External != nil {
		ci.DependencyCount = 1
		ci.PDependencies = []vk.SubpassDependency{*info.External}
	}
	var rp vk.RenderPass
	ret := vk.CreateRenderPass(d.dev, &ci, nil, &rp)
	return rp, errors.Wrapf(render.NewError(ret), "vkdevice: create render pass %q", info.Name)
}

func (d *Device) CreateFramebuffer(rp vk.RenderPass, views []vk.ImageView, extent vk.Extent2D, layers uint32) (vk.Framebuffer, error) {
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(d.dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          layers,
	}, nil, &fb)
	return fb, errors.Wrap(render.NewError(ret), "vkdevice: create framebuffer")
}

func (d *Device) CreateEvent(name string) (vk.Event, error) {
	var ev vk.Event
	ret := vk.CreateEvent(d.dev, &vk.EventCreateInfo{
		SType: vk.StructureTypeEventCreateInfo,
	}, nil, &ev)
	return ev, errors.Wrapf(render.NewError(ret), "vkdevice: create event %q", name)
}

func (d *Device) CreateSemaphore(name string) (vk.Semaphore, error) {
	var s vk.Semaphore
	ret := vk.CreateSemaphore(d.dev, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &s)
	return s, errors.Wrapf(render.NewError(ret), "vkdevice: create semaphore %q", name)
}
