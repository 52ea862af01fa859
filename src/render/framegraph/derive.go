package framegraph

// deriveBarriers walks every surviving resource's timeline and attaches a
// Dependency to the consumer of each hazard.
func (g *Graph) deriveBarriers() {
	f := g.f
	for i := range f.passes {
		f.passes[i].plan.reset(PassID(i), &f.passes[i])
	}
	n := 0
	for i := range f.images {
		if f.images[i].refs == 0 {
			continue
		}
		n += f.deriveTimeline(resourceRef{index: i})
	}
	for i := range f.buffers {
		if f.buffers[i].refs == 0 {
			continue
		}
		n += f.deriveTimeline(resourceRef{buffer: true, index: i})
	}
	g.log.Debug("derive barriers", "dependencies", n)
}

// deriveTimeline classifies each adjacent pair of surviving accesses.
//
// Adjacent reads in the same layout on the same queue need no barrier
// between them, which leaves two hazards that adjacency alone misses:
// every read in such a run still depends on the last write, and a write
// ending the run must wait for every read in it. Both get their own
// Dependency with no layout change, since the adjacent pair already
// performed it.
func (f *frame) deriveTimeline(r resourceRef) int {
	st := f.liveStages(f.timeline(r))
	n := 0
	add := func(prev, cur ResourceStage, kind BarrierKind) {
		c := &f.passes[cur.Pass].plan
		c.Deps = append(c.Deps, Dependency{
			Barrier:  kind,
			Producer: prev.Pass,
			Consumer: cur.Pass,
			Image:    r.image(),
			Buffer:   r.buf(),
			Before:   prev,
			After:    cur,
			SrcQueue: f.passes[prev.Pass].queue,
			DstQueue: f.passes[cur.Pass].queue,
		})
		n++
	}

	lastWrite := -1
	var run []int // reads since the last write or transition
	if len(st) > 0 {
		if st[0].Write {
			lastWrite = 0
		} else {
			run = append(run, 0)
		}
	}
	for i := 1; i < len(st); i++ {
		prev, cur := st[i-1], st[i]
		pq, cq := f.passes[prev.Pass].queue, f.passes[cur.Pass].queue
		kind := Classify(prev.Layout, cur.Layout, pq, cq, prev.Write, cur.Write)
		if kind != BarrierNone {
			add(prev, cur, kind)
		}

		if cur.Write {
			if !prev.Write && pq == cq {
				for _, j := range run {
					if j != i-1 {
						add(st[j], cur, BarrierExecution)
					}
				}
			}
			lastWrite = i
			run = run[:0]
			continue
		}
		if kind == BarrierNone {
			if lastWrite >= 0 {
				add(st[lastWrite], cur, BarrierMemory)
			}
			run = append(run, i)
			continue
		}
		run = append(run[:0], i)
	}
	return n
}
