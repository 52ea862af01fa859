package framegraph

import "fmt"

// ImageHandle names a virtual image. Handles are 1-based; 0 is no image.
type ImageHandle uint32

// BufferHandle names a virtual buffer. Handles are 1-based; 0 is no buffer.
type BufferHandle uint32

const (
	NoImage  ImageHandle  = 0
	NoBuffer BufferHandle = 0
)

func (h ImageHandle) Valid() bool  { return h != NoImage }
func (h BufferHandle) Valid() bool { return h != NoBuffer }

func (h ImageHandle) index() int  { return int(h) - 1 }
func (h BufferHandle) index() int { return int(h) - 1 }

func (h ImageHandle) String() string  { return fmt.Sprintf("image#%d", uint32(h)) }
func (h BufferHandle) String() string { return fmt.Sprintf("buffer#%d", uint32(h)) }

// PassID is the declaration index of a pass.
type PassID int

// resourceRef points at one entry of the frame's image or buffer arrays.
type resourceRef struct {
	buffer bool
	index  int
}

func imageRef(h ImageHandle) resourceRef   { return resourceRef{index: h.index()} }
func bufferRef(h BufferHandle) resourceRef { return resourceRef{buffer: true, index: h.index()} }

func (r resourceRef) image() ImageHandle {
	if r.buffer {
		return NoImage
	}
	return ImageHandle(r.index + 1)
}

func (r resourceRef) buf() BufferHandle {
	if !r.buffer {
		return NoBuffer
	}
	return BufferHandle(r.index + 1)
}
