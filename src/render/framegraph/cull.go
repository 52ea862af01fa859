package framegraph

import (
	vk "github.com/vulkan-go/vulkan"
)

func (f *frame) refCount(r resourceRef) *int {
	if r.buffer {
		return &f.buffers[r.index].refs
	}
	return &f.images[r.index].refs
}

func (f *frame) timeline(r resourceRef) []ResourceStage {
	if r.buffer {
		return f.buffers[r.index].stages
	}
	return f.images[r.index].stages
}

func (f *frame) resourceName(r resourceRef) string {
	if r.buffer {
		return f.buffers[r.index].desc.Name
	}
	return f.images[r.index].desc.Name
}

// lastWriter is the most recent pass writing r, or -1.
func (f *frame) lastWriter(r resourceRef) PassID {
	st := f.timeline(r)
	for i := len(st) - 1; i >= 0; i-- {
		if st[i].Write {
			return st[i].Pass
		}
	}
	return -1
}

// seedRefs sets the initial reference counts: a pass holds one per
// resource it writes, a resource one per pass reading it plus one for the
// back buffer. Persistent imported images are read by the next frame and
// hold one more.
func (f *frame) seedRefs() {
	for i := range f.images {
		f.images[i].refs = 0
		if f.images[i].initial != vk.ImageLayoutUndefined {
			f.images[i].refs = 1
		}
	}
	for i := range f.buffers {
		f.buffers[i].refs = 0
	}
	for i := range f.passes {
		p := &f.passes[i]
		p.refs = len(p.writes)
		for _, r := range p.reads {
			*f.refCount(r)++
		}
	}
	if f.backBuffer.Valid() {
		f.images[f.backBuffer.index()].refs++
	}
}

// cull removes passes that cannot reach the back buffer. It is a backward
// fixed point over a work list of unreferenced resources.
func (f *frame) cull() {
	f.seedRefs()

	var work []resourceRef
	release := func(p *pass) {
		for _, r := range p.reads {
			rc := f.refCount(r)
			*rc--
			if *rc == 0 {
				work = append(work, r)
			}
		}
	}

	// Passes that write nothing produce nothing anyone can read. Their
	// reads are dropped before the work list is seeded so no resource is
	// queued twice.
	for i := range f.passes {
		if p := &f.passes[i]; p.refs == 0 {
			for _, r := range p.reads {
				*f.refCount(r)--
			}
		}
	}
	for i := range f.images {
		if f.images[i].refs == 0 {
			work = append(work, resourceRef{index: i})
		}
	}
	for i := range f.buffers {
		if f.buffers[i].refs == 0 {
			work = append(work, resourceRef{buffer: true, index: i})
		}
	}

	for len(work) > 0 {
		r := work[len(work)-1]
		work = work[:len(work)-1]

		w := f.lastWriter(r)
		if w < 0 {
			continue
		}
		p := &f.passes[w]
		if p.refs == 0 {
			continue
		}
		p.refs--
		if p.refs == 0 {
			release(p)
		}
	}

	// A surviving pass keeps everything it touches, read elsewhere or not.
	for i := range f.passes {
		p := &f.passes[i]
		if !p.alive() {
			continue
		}
		for _, r := range p.reads {
			if rc := f.refCount(r); *rc == 0 {
				*rc = 1
			}
		}
		for _, r := range p.writes {
			if rc := f.refCount(r); *rc == 0 {
				*rc = 1
			}
		}
	}
}

// liveStages filters a timeline down to accesses by surviving passes.
func (f *frame) liveStages(st []ResourceStage) []ResourceStage {
	out := make([]ResourceStage, 0, len(st))
	for _, s := range st {
		if f.passes[s.Pass].alive() {
			out = append(out, s)
		}
	}
	return out
}
