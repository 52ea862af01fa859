package framegraph

import (
	"testing"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestAccessKindRoundTrip(t *testing.T) {
	for k := AccessKind(1); k < accessKindCount; k++ {
		t.Run(k.String(), func(t *testing.T) {
			got, ok := ParseAccessKind(k.String())
			require.True(t, ok)
			require.Equal(t, k, got)
			if !k.IsImage() {
				require.Equal(t, vk.ImageLayoutUndefined, k.Layout())
				require.False(t, k.IsAttachment())
			}
		})
	}
	_, ok := ParseAccessKind("none")
	require.False(t, ok)
	_, ok = ParseAccessKind("sampled")
	require.False(t, ok)
	require.Equal(t, "unknown", accessKindCount.String())
}

func TestNewStage(t *testing.T) {
	compute := vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	vertex := vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit)

	st := newStage(3, PassGraphics, AccessTexture, 0)
	require.Equal(t, PassID(3), st.Pass)
	require.False(t, st.Write)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), st.Stages)
	require.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, st.Layout)
	require.Zero(t, st.writeAccess())

	st = newStage(0, PassGraphics, AccessTexture, compute)
	require.Equal(t, compute, st.Stages)

	// fixed kinds ignore the caller's stages
	st = newStage(0, PassGraphics, AccessColorAttachment, vertex)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), st.Stages)
	require.True(t, st.Write)
	require.Equal(t, st.Access, st.writeAccess())

	st = newStage(0, PassHostWrite, AccessHostWrite, 0)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageHostBit), st.Stages)
	require.Equal(t, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), st.BufferUsage)
}

func TestNewStageComputeDefaults(t *testing.T) {
	compute := vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	vertex := vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit)

	for _, k := range []AccessKind{AccessTexture, AccessStorageImageRead, AccessStorageBufferWrite, AccessUniformBuffer} {
		require.Equal(t, compute, newStage(0, PassCompute, k, 0).Stages, "kind %s", k)
	}
	// an explicit mask wins
	require.Equal(t, vertex, newStage(0, PassCompute, AccessUniformBuffer, vertex).Stages)
	// non-shader kinds keep their own stages
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit),
		newStage(0, PassCompute, AccessIndirectBuffer, 0).Stages)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit|vk.PipelineStageFragmentShaderBit),
		newStage(0, PassGraphics, AccessUniformBuffer, 0).Stages)
}
