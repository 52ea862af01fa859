package framegraph

// Compile runs the five compile phases over the declared frame: cull,
// allocate, derive virtual barriers, derive render passes and lower to
// physical synchronization. Any inconsistency panics.
func (g *Graph) Compile() {
	g.mustDeclare("Compile")
	f := g.f

	f.cull()
	alive := 0
	for i := range f.passes {
		if f.passes[i].alive() {
			alive++
		}
	}
	g.log.Debug("cull", "passes", len(f.passes), "alive", alive)
	if alive == 0 {
		g.log.Warn("every pass was culled", "passes", len(f.passes))
	}

	g.allocate()
	g.deriveBarriers()
	prev := f.prevOnQueue()
	g.deriveRenderPasses(prev)
	g.lower(prev)

	if g.ctx.Config.Validate {
		g.validate()
	}
	f.state = stateCompiled
}

// validate checks the compiled plan for internal consistency.
func (g *Graph) validate() {
	f := g.f
	for i := range f.passes {
		p := &f.passes[i]
		if !p.alive() {
			if len(p.plan.Deps) != 0 {
				g.fatalf("culled pass %q has dependencies", p.name)
			}
			continue
		}
		for _, d := range p.plan.Deps {
			if d.Sync == SyncUnresolved {
				g.fatalf("dependency %s -> %s on %s was not lowered", f.passes[d.Producer].name, p.name, f.depResource(&d))
			}
			if !f.passes[d.Producer].alive() {
				g.fatalf("pass %q depends on culled pass %q", p.name, f.passes[d.Producer].name)
			}
			if d.Producer >= d.Consumer {
				g.fatalf("pass %q depends on later pass %q", p.name, f.passes[d.Producer].name)
			}
		}
		for _, w := range p.plan.EventWaits {
			if w.Barrier.SrcStages != f.passes[w.Producer].plan.SignalStages {
				g.fatalf("pass %q waits on the event of %q with a narrower stage mask", p.name, f.passes[w.Producer].name)
			}
		}
		if p.kind == PassGraphics && p.plan.RenderPass == nil {
			g.fatalf("graphics pass %q has no render pass", p.name)
		}
	}
}

func (f *frame) depResource(d *Dependency) string {
	if d.Image.Valid() {
		return f.images[d.Image.index()].desc.Name
	}
	return f.buffers[d.Buffer.index()].desc.Name
}
