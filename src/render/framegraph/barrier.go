package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// BarrierKind classifies the hazard between two adjacent accesses.
type BarrierKind uint8

const (
	BarrierNone BarrierKind = iota
	// BarrierTransition changes layout or queue ownership.
	BarrierTransition
	// BarrierMemory orders a write before a later read or write.
	BarrierMemory
	// BarrierExecution orders a read before a later write.
	BarrierExecution
)

func (k BarrierKind) String() string {
	switch k {
	case BarrierNone:
		return "none"
	case BarrierTransition:
		return "transition"
	case BarrierMemory:
		return "memory"
	case BarrierExecution:
		return "execution"
	}
	return "unknown"
}

// SyncKind is the physical primitive a dependency was lowered to.
type SyncKind uint8

const (
	SyncUnresolved SyncKind = iota
	SyncPipelineBarrier
	SyncEvent
	SyncSemaphore
	// SyncRenderPass dependencies are carried by a render pass's external
	// subpass dependency.
	SyncRenderPass
)

func (k SyncKind) String() string {
	switch k {
	case SyncUnresolved:
		return "unresolved"
	case SyncPipelineBarrier:
		return "barrier"
	case SyncEvent:
		return "event"
	case SyncSemaphore:
		return "semaphore"
	case SyncRenderPass:
		return "render-pass"
	}
	return "unknown"
}

// Classify returns the barrier needed between two adjacent accesses. It
// depends on nothing but its arguments.
func Classify(layoutBefore, layoutAfter vk.ImageLayout, queueBefore, queueAfter Queue, writeBefore, writeAfter bool) BarrierKind {
	switch {
	case layoutBefore != layoutAfter || queueBefore != queueAfter:
		return BarrierTransition
	case writeBefore:
		return BarrierMemory
	case writeAfter:
		return BarrierExecution
	}
	return BarrierNone
}

// Dependency is a virtual barrier: the hazard between two adjacent
// surviving accesses of one resource. It belongs to the consumer pass.
type Dependency struct {
	Barrier  BarrierKind
	Sync     SyncKind
	Producer PassID
	Consumer PassID
	Image    ImageHandle
	Buffer   BufferHandle
	Before   ResourceStage
	After    ResourceStage
	SrcQueue Queue
	DstQueue Queue
}

func (d *Dependency) crossQueue() bool { return d.SrcQueue != d.DstQueue }

// ImageBarrier is a layout transition or ownership transfer of one image.
type ImageBarrier struct {
	Handle    ImageHandle
	Image     vk.Image
	Range     vk.ImageSubresourceRange
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcFamily uint32
	DstFamily uint32
}

// BufferBarrier is an ownership transfer of one buffer.
type BufferBarrier struct {
	Handle    BufferHandle
	Buffer    vk.Buffer
	Size      uint64
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcFamily uint32
	DstFamily uint32
}

// PipelineBarrier is one merged vkCmdPipelineBarrier (or the barrier part
// of vkCmdWaitEvents). SrcAccess/DstAccess form its global memory barrier.
type PipelineBarrier struct {
	SrcStages vk.PipelineStageFlags
	DstStages vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	Images    []ImageBarrier
	Buffers   []BufferBarrier
}

func (b *PipelineBarrier) Empty() bool {
	return b.SrcStages == 0 && b.DstStages == 0 &&
		b.SrcAccess == 0 && b.DstAccess == 0 &&
		len(b.Images) == 0 && len(b.Buffers) == 0
}

// addImage merges ib into an existing entry for the same transition, so
// several dependencies on one image collapse into one barrier.
func (b *PipelineBarrier) addImage(ib ImageBarrier) {
	for i := range b.Images {
		x := &b.Images[i]
		if x.Handle == ib.Handle && x.OldLayout == ib.OldLayout && x.NewLayout == ib.NewLayout &&
			x.SrcFamily == ib.SrcFamily && x.DstFamily == ib.DstFamily {
			x.SrcAccess |= ib.SrcAccess
			x.DstAccess |= ib.DstAccess
			return
		}
	}
	b.Images = append(b.Images, ib)
}

func (b *PipelineBarrier) addBuffer(bb BufferBarrier) {
	for i := range b.Buffers {
		x := &b.Buffers[i]
		if x.Handle == bb.Handle && x.SrcFamily == bb.SrcFamily && x.DstFamily == bb.DstFamily {
			x.SrcAccess |= bb.SrcAccess
			x.DstAccess |= bb.DstAccess
			return
		}
	}
	b.Buffers = append(b.Buffers, bb)
}

// StageMasks returns the stage masks with empty scopes replaced by
// TOP_OF_PIPE and BOTTOM_OF_PIPE, which Vulkan requires to be non-zero.
func (b *PipelineBarrier) StageMasks() (src, dst vk.PipelineStageFlags) {
	src, dst = b.SrcStages, b.DstStages
	if src == 0 {
		src = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if dst == 0 {
		dst = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	return src, dst
}

func (b *PipelineBarrier) VulkanMemoryBarriers() []vk.MemoryBarrier {
	if b.SrcAccess == 0 && b.DstAccess == 0 {
		return nil
	}
	return []vk.MemoryBarrier{{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: b.SrcAccess,
		DstAccessMask: b.DstAccess,
	}}
}

func (b *PipelineBarrier) VulkanImageBarriers() []vk.ImageMemoryBarrier {
	if len(b.Images) == 0 {
		return nil
	}
	out := make([]vk.ImageMemoryBarrier, len(b.Images))
	for i, ib := range b.Images {
		out[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       ib.SrcAccess,
			DstAccessMask:       ib.DstAccess,
			OldLayout:           ib.OldLayout,
			NewLayout:           ib.NewLayout,
			SrcQueueFamilyIndex: ib.SrcFamily,
			DstQueueFamilyIndex: ib.DstFamily,
			Image:               ib.Image,
			SubresourceRange:    ib.Range,
		}
	}
	return out
}

func (b *PipelineBarrier) VulkanBufferBarriers() []vk.BufferMemoryBarrier {
	if len(b.Buffers) == 0 {
		return nil
	}
	out := make([]vk.BufferMemoryBarrier, len(b.Buffers))
	for i, bb := range b.Buffers {
		out[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       bb.SrcAccess,
			DstAccessMask:       bb.DstAccess,
			SrcQueueFamilyIndex: bb.SrcFamily,
			DstQueueFamilyIndex: bb.DstFamily,
			Buffer:              bb.Buffer,
			Size:                vk.DeviceSize(bb.Size),
		}
	}
	return out
}
