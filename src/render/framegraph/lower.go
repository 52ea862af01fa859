package framegraph

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
)

type semaphoreKey struct {
	producer PassID
	queue    Queue
}

type semaphoreSlot struct {
	index  int
	waiter PassID
	wait   int
}

// lowering is the scratch state of phase five.
type lowering struct {
	g       *Graph
	prev    []PassID
	events  []int
	signals map[semaphoreKey]semaphoreSlot
}

// lower turns every unresolved dependency into a pipeline barrier, an
// event or a semaphore, in that order of preference after the queue test.
func (g *Graph) lower(prev []PassID) {
	f := g.f
	l := &lowering{
		g:       g,
		prev:    prev,
		events:  make([]int, len(f.passes)),
		signals: make(map[semaphoreKey]semaphoreSlot),
	}
	for i := range l.events {
		l.events[i] = -1
	}

	var barriers, events, semaphores int
	for i := range f.passes {
		p := &f.passes[i]
		if !p.alive() {
			continue
		}
		if p.kind == PassHostWrite {
			// The CPU writes at submission time, so nothing on the GPU
			// timeline can be ordered before it.
			for j := range p.plan.Deps {
				d := &p.plan.Deps[j]
				if f.passes[d.Producer].kind != PassHostWrite {
					g.fatalf("host write %q follows %q on %s in the same frame", p.name,
						f.passes[d.Producer].name, f.depResource(d))
				}
			}
		}
		for j := range p.plan.Deps {
			d := &p.plan.Deps[j]
			switch {
			case d.Sync != SyncUnresolved:
				continue
			case d.crossQueue():
				l.semaphore(d)
				semaphores++
			case f.passes[d.Producer].kind == PassHostWrite || prev[d.Consumer] == d.Producer:
				// Host writes have no point on the GPU timeline to set an
				// event from, so they always wait at the consumer's start.
				l.barrier(&p.plan.Start, d)
				d.Sync = SyncPipelineBarrier
				barriers++
			default:
				l.event(d)
				events++
			}
		}
	}
	l.widenEventWaits()
	l.initialTransitions()
	l.restoreImported()
	l.present()
	g.log.Debug("lower", "barriers", barriers, "events", events, "semaphores", semaphores,
		"event_objects", len(f.events), "semaphore_objects", len(f.semaphores))
}

func (l *lowering) imageBarrier(h ImageHandle) ImageBarrier {
	f := l.g.f
	vi := &f.images[h.index()]
	return ImageBarrier{
		Handle:    h,
		Image:     f.physImages[vi.physical].Image,
		Range:     vi.desc.Range(),
		SrcFamily: vk.QueueFamilyIgnored,
		DstFamily: vk.QueueFamilyIgnored,
	}
}

func (l *lowering) bufferBarrier(h BufferHandle) BufferBarrier {
	f := l.g.f
	vb := &f.buffers[h.index()]
	pb := f.physBuffers[vb.physical]
	return BufferBarrier{
		Handle:    h,
		Buffer:    pb.Buffer,
		Size:      vb.desc.Size,
		SrcFamily: vk.QueueFamilyIgnored,
		DstFamily: vk.QueueFamilyIgnored,
	}
}

// barrier merges a same-queue dependency into b.
func (l *lowering) barrier(b *PipelineBarrier, d *Dependency) {
	b.SrcStages |= d.Before.Stages
	b.DstStages |= d.After.Stages
	switch d.Barrier {
	case BarrierTransition:
		// Same queue, so only images can get here.
		ib := l.imageBarrier(d.Image)
		ib.OldLayout = d.Before.Layout
		ib.NewLayout = d.After.Layout
		ib.SrcAccess = d.Before.writeAccess()
		ib.DstAccess = d.After.Access
		b.addImage(ib)
	case BarrierMemory:
		b.SrcAccess |= d.Before.writeAccess()
		b.DstAccess |= d.After.Access
	}
}

func (l *lowering) event(d *Dependency) {
	f := l.g.f
	prod := &f.passes[d.Producer].plan
	ev := l.events[d.Producer]
	if ev < 0 {
		e, err := l.g.dev.CreateEvent(fmt.Sprintf("%s.event", prod.Name))
		render.OrPanic(errors.Wrapf(err, "framegraph: create event for %q", prod.Name))
		ev = len(f.events)
		f.events = append(f.events, e)
		l.g.owned.Events = append(l.g.owned.Events, e)
		l.events[d.Producer] = ev
		prod.SignalEvent = ev
	}
	prod.SignalStages |= d.Before.Stages

	cons := &f.passes[d.Consumer].plan
	w := -1
	for i := range cons.EventWaits {
		if cons.EventWaits[i].Event == ev {
			w = i
			break
		}
	}
	if w < 0 {
		cons.EventWaits = append(cons.EventWaits, EventWait{Event: ev, Producer: d.Producer})
		w = len(cons.EventWaits) - 1
	}
	l.barrier(&cons.EventWaits[w].Barrier, d)
	d.Sync = SyncEvent
}

// widenEventWaits sets the source scope of every wait to the full mask the
// producer sets its event with; vkCmdWaitEvents requires the two to match.
func (l *lowering) widenEventWaits() {
	f := l.g.f
	for i := range f.passes {
		p := &f.passes[i]
		for j := range p.plan.EventWaits {
			w := &p.plan.EventWaits[j]
			w.Barrier.SrcStages = f.passes[w.Producer].plan.SignalStages
		}
	}
}

// semaphore lowers a cross-queue dependency. A producer gets one binary
// semaphore per consuming queue; the first consumer on that queue waits on
// it and later consumers widen its stage mask, since a wait also orders
// every later submission on the queue.
func (l *lowering) semaphore(d *Dependency) {
	f := l.g.f
	key := semaphoreKey{producer: d.Producer, queue: d.DstQueue}
	slot, ok := l.signals[key]
	if !ok {
		prod := &f.passes[d.Producer].plan
		s, err := l.g.dev.CreateSemaphore(fmt.Sprintf("%s.%s", prod.Name, d.DstQueue))
		render.OrPanic(errors.Wrapf(err, "framegraph: create semaphore for %q", prod.Name))
		idx := len(f.semaphores)
		f.semaphores = append(f.semaphores, s)
		l.g.owned.Semaphores = append(l.g.owned.Semaphores, s)
		prod.SemaphoreSignals = append(prod.SemaphoreSignals, idx)

		cons := &f.passes[d.Consumer].plan
		cons.SemaphoreWaits = append(cons.SemaphoreWaits, SemaphoreWait{Semaphore: idx})
		slot = semaphoreSlot{index: idx, waiter: d.Consumer, wait: len(cons.SemaphoreWaits) - 1}
		l.signals[key] = slot
	}
	f.passes[slot.waiter].plan.SemaphoreWaits[slot.wait].Stages |= d.After.Stages
	d.Sync = SyncSemaphore

	if d.Barrier != BarrierTransition {
		return
	}
	src, dst := l.g.family(d.SrcQueue), l.g.family(d.DstQueue)
	start := &f.passes[d.Consumer].plan.Start
	if src != dst {
		end := &f.passes[d.Producer].plan.End
		end.SrcStages |= d.Before.Stages
		start.SrcStages |= d.After.Stages
		start.DstStages |= d.After.Stages
		if d.Image.Valid() {
			rel := l.imageBarrier(d.Image)
			rel.OldLayout, rel.NewLayout = d.Before.Layout, d.After.Layout
			rel.SrcFamily, rel.DstFamily = src, dst
			acq := rel
			rel.SrcAccess = d.Before.writeAccess()
			acq.DstAccess = d.After.Access
			end.addImage(rel)
			start.addImage(acq)
		} else {
			rel := l.bufferBarrier(d.Buffer)
			rel.SrcFamily, rel.DstFamily = src, dst
			acq := rel
			rel.SrcAccess = d.Before.writeAccess()
			acq.DstAccess = d.After.Access
			end.addBuffer(rel)
			start.addBuffer(acq)
		}
		return
	}
	if d.Image.Valid() && d.Before.Layout != d.After.Layout {
		start.SrcStages |= d.After.Stages
		start.DstStages |= d.After.Stages
		ib := l.imageBarrier(d.Image)
		ib.OldLayout, ib.NewLayout = d.Before.Layout, d.After.Layout
		ib.DstAccess = d.After.Access
		start.addImage(ib)
	}
}

// initialTransitions moves images whose first access is outside a render
// pass out of their frame-start layout, UNDEFINED unless imported with one.
func (l *lowering) initialTransitions() {
	f := l.g.f
	for i := range f.images {
		vi := &f.images[i]
		if vi.refs == 0 {
			continue
		}
		st := f.liveStages(vi.stages)
		if len(st) == 0 {
			continue
		}
		first := st[0]
		p := &f.passes[first.Pass]
		if first.Layout == vk.ImageLayoutUndefined || first.Layout == vi.initial ||
			(p.kind == PassGraphics && first.Kind.IsAttachment()) {
			continue
		}
		ib := l.imageBarrier(ImageHandle(i + 1))
		ib.OldLayout = vi.initial
		ib.NewLayout = first.Layout
		ib.DstAccess = first.Access
		// Chains after a semaphore wait on the same stages.
		p.plan.Start.SrcStages |= first.Stages
		p.plan.Start.DstStages |= first.Stages
		p.plan.Start.addImage(ib)
	}
}

// restoreImported transitions persistent imported images back to their
// frame-start layout after a last use outside a render pass. Render passes
// do it through the attachment's final layout.
func (l *lowering) restoreImported() {
	f := l.g.f
	for i := range f.images {
		vi := &f.images[i]
		h := ImageHandle(i + 1)
		if vi.refs == 0 || vi.initial == vk.ImageLayoutUndefined || h == f.backBuffer {
			continue
		}
		st := f.liveStages(vi.stages)
		if len(st) == 0 {
			continue
		}
		last := st[len(st)-1]
		p := &f.passes[last.Pass]
		if last.Layout == vi.initial || (p.kind == PassGraphics && last.Kind.IsAttachment()) {
			continue
		}
		ib := l.imageBarrier(h)
		ib.OldLayout = last.Layout
		ib.NewLayout = vi.initial
		ib.SrcAccess = last.writeAccess()
		p.plan.End.SrcStages |= last.Stages
		p.plan.End.addImage(ib)
	}
}

// present wires the back buffer to the swapchain: the first pass touching
// it waits for the acquire, the last one signals the present semaphore
// and, outside a render pass, transitions it to PRESENT_SRC.
func (l *lowering) present() {
	f := l.g.f
	if f.present == nil || !f.backBuffer.Valid() {
		return
	}
	vi := &f.images[f.backBuffer.index()]
	st := f.liveStages(vi.stages)
	if len(st) == 0 {
		l.g.log.Warn("back buffer is never written; nothing to present", "image", vi.desc.Name)
		return
	}
	first, last := st[0], st[len(st)-1]
	fp := &f.passes[first.Pass].plan
	fp.WaitsPresent = true
	fp.PresentStages |= first.Stages

	lp := &f.passes[last.Pass]
	s, err := l.g.dev.CreateSemaphore("present")
	render.OrPanic(errors.Wrap(err, "framegraph: create present semaphore"))
	f.presentSem = len(f.semaphores)
	f.semaphores = append(f.semaphores, s)
	l.g.owned.Semaphores = append(l.g.owned.Semaphores, s)
	lp.plan.SignalsPresent = true

	inRenderPass := lp.kind == PassGraphics && last.Kind.IsAttachment()
	src, dst := l.g.family(lp.queue), l.g.family(f.present.Queue)
	if inRenderPass && src == dst {
		return
	}
	ib := l.imageBarrier(f.backBuffer)
	ib.OldLayout = last.Layout
	if inRenderPass {
		ib.OldLayout = vk.ImageLayoutPresentSrc
	}
	ib.NewLayout = vk.ImageLayoutPresentSrc
	ib.SrcAccess = last.writeAccess()
	if src != dst {
		ib.SrcFamily, ib.DstFamily = src, dst
	}
	lp.plan.End.SrcStages |= last.Stages
	lp.plan.End.addImage(ib)
}
