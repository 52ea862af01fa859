package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

// AccessKind is how a pass touches a resource. The kind alone fixes the
// usage flags, access mask and image layout of the access.
type AccessKind uint8

const (
	AccessNone AccessKind = iota

	// image kinds
	AccessColorAttachment
	AccessInputAttachment
	AccessDepthStencilWrite
	AccessDepthStencilRead
	AccessTexture
	AccessStorageImageRead
	AccessStorageImageWrite
	AccessBlitSrc
	AccessBlitDst
	AccessClear

	// buffer kinds
	AccessStorageBufferRead
	AccessStorageBufferWrite
	AccessUniformBuffer
	AccessVertexBuffer
	AccessIndexBuffer
	AccessIndirectBuffer
	AccessTransferSrc
	AccessTransferDst
	AccessHostWrite

	accessKindCount
)

type accessInfo struct {
	name       string
	image      bool
	write      bool
	attachment bool
	// fixed stages ignore the caller's mask
	fixed bool
	// shader kinds default to the compute stage in compute passes
	shader      bool
	stages      vk.PipelineStageFlags
	imageUsage  vk.ImageUsageFlags
	bufferUsage vk.BufferUsageFlags
	access      vk.AccessFlags
	layout      vk.ImageLayout
}

var accessTable = [accessKindCount]accessInfo{
	AccessNone: {name: "none"},

	AccessColorAttachment: {
		name: "color-attachment", image: true, write: true, attachment: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		access:     vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		layout:     vk.ImageLayoutColorAttachmentOptimal,
	},
	AccessInputAttachment: {
		name: "input-attachment", image: true, attachment: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageInputAttachmentBit),
		access:     vk.AccessFlags(vk.AccessInputAttachmentReadBit),
		layout:     vk.ImageLayoutShaderReadOnlyOptimal,
	},
	AccessDepthStencilWrite: {
		name: "depth-stencil-write", image: true, write: true, attachment: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		access:     vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	},
	AccessDepthStencilRead: {
		name: "depth-stencil-read", image: true, attachment: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		access:     vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
		layout:     vk.ImageLayoutDepthStencilReadOnlyOptimal,
	},
	AccessTexture: {
		name: "texture", image: true, shader: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		access:     vk.AccessFlags(vk.AccessShaderReadBit),
		layout:     vk.ImageLayoutShaderReadOnlyOptimal,
	},
	AccessStorageImageRead: {
		name: "storage-image-read", image: true, shader: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageStorageBit),
		access:     vk.AccessFlags(vk.AccessShaderReadBit),
		layout:     vk.ImageLayoutGeneral,
	},
	AccessStorageImageWrite: {
		name: "storage-image-write", image: true, write: true, shader: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageStorageBit),
		access:     vk.AccessFlags(vk.AccessShaderWriteBit),
		layout:     vk.ImageLayoutGeneral,
	},
	AccessBlitSrc: {
		name: "blit-src", image: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		access:     vk.AccessFlags(vk.AccessTransferReadBit),
		layout:     vk.ImageLayoutTransferSrcOptimal,
	},
	AccessBlitDst: {
		name: "blit-dst", image: true, write: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		access:     vk.AccessFlags(vk.AccessTransferWriteBit),
		layout:     vk.ImageLayoutTransferDstOptimal,
	},
	AccessClear: {
		name: "clear", image: true, write: true, fixed: true,
		stages:     vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		imageUsage: vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		access:     vk.AccessFlags(vk.AccessTransferWriteBit),
		layout:     vk.ImageLayoutTransferDstOptimal,
	},

	AccessStorageBufferRead: {
		name: "storage-buffer-read", shader: true,
		stages:      vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		access:      vk.AccessFlags(vk.AccessShaderReadBit),
	},
	AccessStorageBufferWrite: {
		name: "storage-buffer-write", write: true, shader: true,
		stages:      vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		access:      vk.AccessFlags(vk.AccessShaderWriteBit),
	},
	AccessUniformBuffer: {
		name: "uniform", shader: true,
		stages:      vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		access:      vk.AccessFlags(vk.AccessUniformReadBit),
	},
	AccessVertexBuffer: {
		name:        "vertex",
		stages:      vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		access:      vk.AccessFlags(vk.AccessVertexAttributeReadBit),
	},
	AccessIndexBuffer: {
		name:        "index",
		stages:      vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
		access:      vk.AccessFlags(vk.AccessIndexReadBit),
	},
	AccessIndirectBuffer: {
		name:        "indirect",
		stages:      vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit),
		access:      vk.AccessFlags(vk.AccessIndirectCommandReadBit),
	},
	AccessTransferSrc: {
		name: "transfer-src", fixed: true,
		stages:      vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		access:      vk.AccessFlags(vk.AccessTransferReadBit),
	},
	AccessTransferDst: {
		name: "transfer-dst", write: true, fixed: true,
		stages:      vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		access:      vk.AccessFlags(vk.AccessTransferWriteBit),
	},
	AccessHostWrite: {
		name: "host-write", write: true, fixed: true,
		stages:      vk.PipelineStageFlags(vk.PipelineStageHostBit),
		bufferUsage: vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		access:      vk.AccessFlags(vk.AccessHostWriteBit),
	},
}

func (k AccessKind) info() *accessInfo {
	if k >= accessKindCount {
		panic("framegraph: unknown access kind")
	}
	return &accessTable[k]
}

func (k AccessKind) String() string {
	if k >= accessKindCount {
		return "unknown"
	}
	return accessTable[k].name
}

// IsWrite reports whether the access modifies the resource.
func (k AccessKind) IsWrite() bool { return k.info().write }

// IsImage reports whether the kind applies to images rather than buffers.
func (k AccessKind) IsImage() bool { return k.info().image }

// IsAttachment reports whether the access happens inside a render pass.
func (k AccessKind) IsAttachment() bool { return k.info().attachment }

// Layout is the image layout the access requires, UNDEFINED for buffers.
func (k AccessKind) Layout() vk.ImageLayout {
	if !k.info().image {
		return vk.ImageLayoutUndefined
	}
	return k.info().layout
}

// ParseAccessKind resolves the name printed by String.
func ParseAccessKind(name string) (AccessKind, bool) {
	for k := AccessKind(1); k < accessKindCount; k++ {
		if accessTable[k].name == name {
			return k, true
		}
	}
	return AccessNone, false
}

// ResourceStage is one entry in a resource's access timeline.
type ResourceStage struct {
	Pass        PassID
	Kind        AccessKind
	Write       bool
	ImageUsage  vk.ImageUsageFlags
	BufferUsage vk.BufferUsageFlags
	Stages      vk.PipelineStageFlags
	Access      vk.AccessFlags
	Layout      vk.ImageLayout
}

// newStage builds the canonical stage for kind in a pass of the given
// kind. A zero stages mask, or any mask on a fixed kind, falls back to the
// kind's own stages, or to the compute stage for shader accesses of a
// compute pass.
func newStage(pass PassID, pk PassKind, kind AccessKind, stages vk.PipelineStageFlags) ResourceStage {
	in := kind.info()
	switch {
	case in.fixed:
		stages = in.stages
	case stages == 0 && in.shader && pk == PassCompute:
		stages = vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	case stages == 0:
		stages = in.stages
	}
	return ResourceStage{
		Pass:        pass,
		Kind:        kind,
		Write:       in.write,
		ImageUsage:  in.imageUsage,
		BufferUsage: in.bufferUsage,
		Stages:      stages,
		Access:      in.access,
		Layout:      kind.Layout(),
	}
}

// writeAccess is the part of the stage's access mask that must be made
// available to later accesses.
func (s *ResourceStage) writeAccess() vk.AccessFlags {
	if !s.Write {
		return 0
	}
	return s.Access
}
