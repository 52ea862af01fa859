package framegraph

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
)

// Execute records and submits every surviving pass in declaration order,
// then presents the back buffer if present params were set.
func (g *Graph) Execute() {
	f := g.f
	switch f.state {
	case stateDeclaring:
		g.fatalf("Execute before Compile")
	case stateExecuted:
		g.fatalf("frame already executed; call Reset first")
	}
	for i := range f.passes {
		if f.passes[i].alive() {
			g.executePass(PassID(i))
		}
	}
	if f.presentSem >= 0 {
		err := g.dev.Present(f.present, f.semaphores[f.presentSem])
		render.OrPanic(errors.Wrap(err, "framegraph: present"))
	}
	f.state = stateExecuted
}

func (g *Graph) executePass(id PassID) {
	f := g.f
	p := &f.passes[id]
	plan := &p.plan

	if p.kind == PassHostWrite {
		vb := &f.buffers[p.hostBuffer.index()]
		err := g.dev.WriteBuffer(f.physBuffers[vb.physical], p.hostOffset, p.hostData)
		render.OrPanic(errors.Wrapf(err, "framegraph: host write %q", p.name))
	}

	cmd, err := g.dev.BeginCommands(p.queue, p.name)
	render.OrPanic(errors.Wrapf(err, "framegraph: begin commands for %q", p.name))

	if !plan.Start.Empty() {
		cmd.PipelineBarrier(&plan.Start)
	}
	for i := range plan.EventWaits {
		w := &plan.EventWaits[i]
		cmd.WaitEvent(f.events[w.Event], &w.Barrier)
	}

	reg := &Registry{g: g, pass: id}
	if plan.renderPass >= 0 {
		cmd.BeginRenderPass(&RenderPassBegin{
			RenderPass:  f.renderPasses[plan.renderPass],
			Framebuffer: f.framebuffers[plan.framebuffer],
			Extent:      plan.RenderPass.Extent,
			Clears:      plan.RenderPass.Clears(),
		})
	}
	if p.record != nil {
		p.record.Record(cmd, reg)
	}
	if plan.renderPass >= 0 {
		cmd.EndRenderPass()
	}

	if plan.SignalEvent >= 0 {
		cmd.SetEvent(f.events[plan.SignalEvent], plan.SignalStages)
	}
	if !plan.End.Empty() {
		cmd.PipelineBarrier(&plan.End)
	}

	s := &Submission{Queue: p.queue, Name: p.name, Commands: cmd}
	if plan.WaitsPresent && f.present.Wait != vk.Semaphore(vk.NullHandle) {
		s.Waits = append(s.Waits, SubmitWait{Semaphore: f.present.Wait, Stages: plan.PresentStages})
	}
	for _, w := range plan.SemaphoreWaits {
		s.Waits = append(s.Waits, SubmitWait{Semaphore: f.semaphores[w.Semaphore], Stages: w.Stages})
	}
	for _, i := range plan.SemaphoreSignals {
		s.Signals = append(s.Signals, f.semaphores[i])
	}
	if plan.SignalsPresent {
		s.Signals = append(s.Signals, f.semaphores[f.presentSem])
	}
	render.OrPanic(errors.Wrapf(g.dev.Submit(s), "framegraph: submit %q", p.name))
	g.log.Debug("submit", "pass", p.name, "queue", p.queue.String(), "waits", len(s.Waits), "signals", len(s.Signals))
}
