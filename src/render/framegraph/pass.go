package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

type PassKind uint8

const (
	PassGraphics PassKind = iota
	PassCompute
	PassBlit
	PassHostWrite
	PassClear
)

func (k PassKind) String() string {
	switch k {
	case PassGraphics:
		return "graphics"
	case PassCompute:
		return "compute"
	case PassBlit:
		return "blit"
	case PassHostWrite:
		return "host-write"
	case PassClear:
		return "clear"
	}
	return "unknown"
}

// Queue is a logical hardware queue. Several queues may share a family.
type Queue uint8

const (
	QueueGraphics Queue = iota
	QueueCompute
	QueueTransfer

	queueCount
)

func (q Queue) String() string {
	switch q {
	case QueueGraphics:
		return "graphics"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	}
	return "unknown"
}

func ParseQueue(name string) (Queue, bool) {
	for q := Queue(0); q < queueCount; q++ {
		if q.String() == name {
			return q, true
		}
	}
	return 0, false
}

// Recorder records a pass's commands. The graph only needs to call it.
type Recorder interface {
	Record(cmd CommandBuffer, reg *Registry)
}

// RecordFunc adapts a closure to Recorder.
type RecordFunc func(cmd CommandBuffer, reg *Registry)

func (f RecordFunc) Record(cmd CommandBuffer, reg *Registry) {
	if f != nil {
		f(cmd, reg)
	}
}

// SetupFunc declares a pass's resources and returns its record closure.
// Returning nil records nothing.
type SetupFunc func(b *PassBuilder) RecordFunc

type pass struct {
	name   string
	kind   PassKind
	queue  Queue
	reads  []resourceRef
	writes []resourceRef
	refs   int
	record Recorder

	// host-write payload
	hostBuffer BufferHandle
	hostOffset uint64
	hostData   []byte

	plan PassPlan
}

func (p *pass) alive() bool { return p.refs > 0 }

func (p *pass) declared(r resourceRef) bool {
	for _, x := range p.reads {
		if x == r {
			return true
		}
	}
	for _, x := range p.writes {
		if x == r {
			return true
		}
	}
	return false
}

// EventWait is a wait on another pass's event together with the barrier
// applied once it is signaled.
type EventWait struct {
	Event    int
	Producer PassID
	Barrier  PipelineBarrier
}

// SemaphoreWait is a wait on a semaphore before a submission runs the
// given stages.
type SemaphoreWait struct {
	Semaphore int
	Stages    vk.PipelineStageFlags
}

// PassPlan is everything the compiler derived for one pass.
type PassPlan struct {
	ID    PassID
	Name  string
	Kind  PassKind
	Queue Queue
	Alive bool

	// Deps are the virtual barriers whose consumer is this pass.
	Deps []Dependency

	// Start runs before the render pass begins; End after it ends.
	Start PipelineBarrier
	End   PipelineBarrier

	EventWaits   []EventWait
	SignalEvent  int
	SignalStages vk.PipelineStageFlags

	SemaphoreWaits   []SemaphoreWait
	SemaphoreSignals []int

	// WaitsPresent is set on the first pass touching the back buffer, which
	// waits for the swapchain image. SignalsPresent on the last one.
	WaitsPresent   bool
	PresentStages  vk.PipelineStageFlags
	SignalsPresent bool

	RenderPass  *RenderPassInfo
	renderPass  int
	framebuffer int
}

func (p *PassPlan) reset(id PassID, src *pass) {
	*p = PassPlan{
		ID:          id,
		Name:        src.name,
		Kind:        src.kind,
		Queue:       src.queue,
		Alive:       src.alive(),
		SignalEvent: -1,
		renderPass:  -1,
		framebuffer: -1,
	}
}
