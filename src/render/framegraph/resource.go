package framegraph

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// InitialState is what a resource holds before its first access in the
// frame.
type InitialState uint8

const (
	// InitialUndefined contents may be discarded on first use.
	InitialUndefined InitialState = iota
	// InitialClear contents are cleared to the description's clear value on
	// first use.
	InitialClear
)

func (s InitialState) String() string {
	switch s {
	case InitialUndefined:
		return "undefined"
	case InitialClear:
		return "clear"
	}
	return "unknown"
}

// ClearValue is a clear payload. The resource kind decides which variants
// are legal: images take ClearColor or ClearDepthStencil (by format),
// buffers take ClearWord.
type ClearValue interface {
	isClearValue()
}

// ClearColor is an RGBA float clear color.
type ClearColor [4]float32

// ClearDepthStencil clears depth and stencil aspects.
type ClearDepthStencil struct {
	Depth   float32
	Stencil uint32
}

// ClearWord fills a buffer with a repeated 32-bit word.
type ClearWord uint32

func (ClearColor) isClearValue()        {}
func (ClearDepthStencil) isClearValue() {}
func (ClearWord) isClearValue()         {}

// VulkanClearValue converts an image clear payload. Nil and ClearWord
// convert to an all-zero value.
func VulkanClearValue(c ClearValue) vk.ClearValue {
	switch c := c.(type) {
	case ClearColor:
		return vk.NewClearValue(c[:])
	case ClearDepthStencil:
		return vk.NewClearDepthStencil(c.Depth, c.Stencil)
	}
	var v vk.ClearValue
	return v
}

type ImageDesc struct {
	Name    string
	Width   uint32
	Height  uint32
	Layers  uint32
	Levels  uint32
	Samples vk.SampleCountFlagBits
	Format  vk.Format
	Initial InitialState
	Clear   ClearValue
}

type BufferDesc struct {
	Name        string
	Size        uint64
	HostVisible bool
	// Clear is the word AddClearBufferPass fills the buffer with.
	Clear ClearValue
}

// normalize fills defaults and rejects clear payloads of the wrong variant.
func (d *ImageDesc) normalize() {
	if d.Layers == 0 {
		d.Layers = 1
	}
	if d.Levels == 0 {
		d.Levels = 1
	}
	if d.Samples == 0 {
		d.Samples = vk.SampleCount1Bit
	}
	if d.Width == 0 || d.Height == 0 {
		panic(fmt.Sprintf("framegraph: image %q has zero extent", d.Name))
	}
	switch d.Clear.(type) {
	case nil:
	case ClearColor:
		if IsDepthFormat(d.Format) {
			panic(fmt.Sprintf("framegraph: image %q: color clear value on depth format", d.Name))
		}
	case ClearDepthStencil:
		if !IsDepthFormat(d.Format) {
			panic(fmt.Sprintf("framegraph: image %q: depth clear value on color format", d.Name))
		}
	default:
		panic(fmt.Sprintf("framegraph: image %q: %T is not an image clear value", d.Name, d.Clear))
	}
}

func (d *BufferDesc) normalize() {
	if d.Size == 0 {
		panic(fmt.Sprintf("framegraph: buffer %q has zero size", d.Name))
	}
	switch d.Clear.(type) {
	case nil, ClearWord:
	default:
		panic(fmt.Sprintf("framegraph: buffer %q: %T is not a buffer clear value", d.Name, d.Clear))
	}
}

// Extent is the 2D size of the image's top level.
func (d *ImageDesc) Extent() vk.Extent2D {
	return vk.Extent2D{Width: d.Width, Height: d.Height}
}

// Aspect is the aspect mask covering every aspect of the format.
func (d *ImageDesc) Aspect() vk.ImageAspectFlags {
	switch {
	case d.Format == vk.FormatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	case HasStencil(d.Format):
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	case IsDepthFormat(d.Format):
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// Range is the subresource range of the whole image.
func (d *ImageDesc) Range() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: d.Aspect(),
		LevelCount: d.Levels,
		LayerCount: d.Layers,
	}
}

func IsDepthFormat(f vk.Format) bool {
	switch f {
	case vk.FormatD16Unorm, vk.FormatX8D24UnormPack32, vk.FormatD32Sfloat, vk.FormatS8Uint,
		vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

func HasStencil(f vk.Format) bool {
	switch f {
	case vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// PhysicalImage is a concrete image created by the Device.
type PhysicalImage struct {
	Image  vk.Image
	View   vk.ImageView
	Memory vk.DeviceMemory
}

// PhysicalBuffer is a concrete buffer created by the Device.
type PhysicalBuffer struct {
	Buffer vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
}

const noPhysical = -1

type virtualImage struct {
	desc     ImageDesc
	refs     int
	stages   []ResourceStage
	physical int
	imported bool
	// initial is the layout an imported image holds between frames.
	initial vk.ImageLayout
}

type virtualBuffer struct {
	desc     BufferDesc
	refs     int
	stages   []ResourceStage
	physical int
	imported bool
}
