package framegraph_test

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
	"github.com/mxplusb/framegraph/src/render/nulldevice"
)

var (
	stageCompute  = vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	stageFragment = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	stageColor    = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	stageHost     = vk.PipelineStageFlags(vk.PipelineStageHostBit)
)

// sameFamily backs every queue with family 0.
var sameFamily = render.QueueFamilies{}

var splitFamilies = render.QueueFamilies{Graphics: 0, Compute: 1, Transfer: 2}

func newGraph(t *testing.T, families render.QueueFamilies) (*framegraph.Graph, *nulldevice.Device) {
	t.Helper()
	cfg := render.DefaultConfig()
	cfg.Validate = true
	cfg.Queues = families
	dev := nulldevice.New(families)
	return framegraph.New(render.NewContext(cfg), dev), dev
}

func colorImage(name string) framegraph.ImageDesc {
	return framegraph.ImageDesc{Name: name, Width: 1024, Height: 768, Format: vk.FormatR16g16b16a16Sfloat}
}

func storageBuffer(name string) framegraph.BufferDesc {
	return framegraph.BufferDesc{Name: name, Size: 256}
}

// edgesOn returns the dependencies of the plan that concern the named
// resource.
func edgesOn(plan *framegraph.Plan, name string) []framegraph.Dependency {
	r, ok := plan.Resource(name)
	if !ok {
		return nil
	}
	var out []framegraph.Dependency
	for _, d := range plan.Edges() {
		if (r.Image.Valid() && d.Image == r.Image) || (r.Buffer.Valid() && d.Buffer == r.Buffer) {
			out = append(out, d)
		}
	}
	return out
}

type edge struct {
	producer, consumer framegraph.PassID
	barrier            framegraph.BarrierKind
}

func edgeSet(deps []framegraph.Dependency) []edge {
	out := make([]edge, len(deps))
	for i, d := range deps {
		out[i] = edge{d.Producer, d.Consumer, d.Barrier}
	}
	return out
}

func ops(t *testing.T, dev *nulldevice.Device, pass string) []nulldevice.Op {
	t.Helper()
	s, ok := dev.Submission(pass)
	if !ok {
		t.Fatalf("pass %q was not submitted", pass)
	}
	out := make([]nulldevice.Op, len(s.Commands))
	for i, c := range s.Commands {
		out[i] = c.Op
	}
	return out
}
