package vkdevice

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
)

// FindRequiredMemoryType returns the first memory type allowed by
// typeBits that has all of the wanted properties.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes && i < props.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if props.MemoryTypes[i].PropertyFlags&want == want {
			return i, true
		}
	}
	return 0, false
}

func (d *Device) allocate(reqs vk.MemoryRequirements, want vk.MemoryPropertyFlags, name string) (vk.DeviceMemory, error) {
	var mem vk.DeviceMemory
	memType, ok := FindRequiredMemoryType(d.memProps, reqs.MemoryTypeBits, want)
	if !ok {
		return mem, errors.Errorf("vkdevice: no memory type with properties %#x for %q", want, name)
	}
	ret := vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	return mem, errors.Wrapf(render.NewError(ret), "vkdevice: allocate memory for %q", name)
}

func (d *Device) CreateImage(desc *framegraph.ImageDesc, usage vk.ImageUsageFlags) (out framegraph.PhysicalImage, err error) {
	defer render.CheckError(&err)

	var img vk.Image
	ret := vk.CreateImage(d.dev, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    desc.Format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     desc.Levels,
		ArrayLayers:   desc.Layers,
		Samples:       desc.Samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	render.OrPanic(errors.Wrapf(render.NewError(ret), "vkdevice: create image %q", desc.Name))

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img, &reqs)
	reqs.Deref()
	mem, err := d.allocate(reqs, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), desc.Name)
	render.OrPanic(err, func() {
		vk.DestroyImage(d.dev, img, nil)
	})
	vk.BindImageMemory(d.dev, img, mem, 0)

	viewType := vk.ImageViewType2d
	if desc.Layers > 1 {
		viewType = vk.ImageViewType2dArray
	}
	var view vk.ImageView
	ret = vk.CreateImageView(d.dev, &vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            img,
		ViewType:         viewType,
		Format:           desc.Format,
		SubresourceRange: desc.Range(),
	}, nil, &view)
	render.OrPanic(errors.Wrapf(render.NewError(ret), "vkdevice: create view of %q", desc.Name), func() {
		vk.DestroyImage(d.dev, img, nil)
		vk.FreeMemory(d.dev, mem, nil)
	})
	return framegraph.PhysicalImage{Image: img, View: view, Memory: mem}, nil
}

func (d *Device) CreateBuffer(desc *framegraph.BufferDesc, usage vk.BufferUsageFlags) (out framegraph.PhysicalBuffer, err error) {
	defer render.CheckError(&err)

	var buf vk.Buffer
	ret := vk.CreateBuffer(d.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	render.OrPanic(errors.Wrapf(render.NewError(ret), "vkdevice: create buffer %q", desc.Name))

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &reqs)
	reqs.Deref()
	want := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.HostVisible {
		want = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	mem, err := d.allocate(reqs, want, desc.Name)
	render.OrPanic(err, func() {
		vk.DestroyBuffer(d.dev, buf, nil)
	})
	vk.BindBufferMemory(d.dev, buf, mem, 0)
	return framegraph.PhysicalBuffer{Buffer: buf, Memory: mem, Size: desc.Size}, nil
}

// WriteBuffer maps the buffer's memory and copies data in. The memory is
// host coherent, so no flush is needed.
func (d *Device) WriteBuffer(buf framegraph.PhysicalBuffer, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > buf.Size {
		return errors.Errorf("vkdevice: write of %d bytes at %d overflows buffer of %d", len(data), offset, buf.Size)
	}
	var ptr unsafe.Pointer
	ret := vk.MapMemory(d.dev, buf.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr)
	if err := render.NewError(ret); err != nil {
		return errors.Wrap(err, "vkdevice: map buffer memory")
	}
	n := vk.Memcopy(ptr, data)
	vk.UnmapMemory(d.dev, buf.Memory)
	if n != len(data) {
		return errors.Errorf("vkdevice: copied %d of %d bytes", n, len(data))
	}
	return nil
}
