package nulldevice

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render/framegraph"
)

type Op uint8

const (
	OpBarrier Op = iota
	OpWaitEvent
	OpSetEvent
	OpBeginRenderPass
	OpEndRenderPass
	OpBlit
	OpClear
	OpFill
	OpMark
)

func (o Op) String() string {
	switch o {
	case OpBarrier:
		return "barrier"
	case OpWaitEvent:
		return "wait-event"
	case OpSetEvent:
		return "set-event"
	case OpBeginRenderPass:
		return "begin-render-pass"
	case OpEndRenderPass:
		return "end-render-pass"
	case OpBlit:
		return "blit"
	case OpClear:
		return "clear"
	case OpFill:
		return "fill"
	case OpMark:
		return "mark"
	}
	return "unknown"
}

// Command is one recorded command.
type Command struct {
	Op      Op
	Barrier *framegraph.PipelineBarrier
	Stages  vk.PipelineStageFlags
	Extent  vk.Extent2D
	Clear   framegraph.ClearValue
	Size    uint64
	Word    uint32
	Label   string
}

// Commands is the command buffer handed to passes.
type Commands struct {
	queue framegraph.Queue
	name  string
	List  []Command
}

func (c *Commands) Raw() vk.CommandBuffer { return nil }

// Mark records a label; record closures use it in place of draw calls.
func (c *Commands) Mark(label string) {
	c.List = append(c.List, Command{Op: OpMark, Label: label})
}

func (c *Commands) PipelineBarrier(b *framegraph.PipelineBarrier) {
	cp := *b
	c.List = append(c.List, Command{Op: OpBarrier, Barrier: &cp})
}

func (c *Commands) WaitEvent(ev vk.Event, b *framegraph.PipelineBarrier) {
	cp := *b
	c.List = append(c.List, Command{Op: OpWaitEvent, Barrier: &cp})
}

func (c *Commands) SetEvent(ev vk.Event, stages vk.PipelineStageFlags) {
	c.List = append(c.List, Command{Op: OpSetEvent, Stages: stages})
}

func (c *Commands) BeginRenderPass(b *framegraph.RenderPassBegin) {
	c.List = append(c.List, Command{Op: OpBeginRenderPass, Extent: b.Extent})
}

func (c *Commands) EndRenderPass() {
	c.List = append(c.List, Command{Op: OpEndRenderPass})
}

func (c *Commands) BlitImage(src, dst vk.Image, regions []vk.ImageBlit, filter vk.Filter) {
	c.List = append(c.List, Command{Op: OpBlit})
}

func (c *Commands) ClearImage(img vk.Image, rng vk.ImageSubresourceRange, clear framegraph.ClearValue) {
	c.List = append(c.List, Command{Op: OpClear, Clear: clear})
}

// Ops lists the recorded opcodes.
func (c *Commands) Ops() []Op {
	out := make([]Op, len(c.List))
	for i, cmd := range c.List {
		out[i] = cmd.Op
	}
	return out
}

func (c *Commands) FillBuffer(buf vk.Buffer, size uint64, word uint32) {
	c.List = append(c.List, Command{Op: OpFill, Size: size, Word: word})
}
