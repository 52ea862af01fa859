package framegraph

// ResourceInfo summarizes one virtual resource after compilation.
type ResourceInfo struct {
	Name      string
	Image     ImageHandle
	Buffer    BufferHandle
	Refs      int
	Imported  bool
	Allocated bool
	Accesses  []ResourceStage
}

// Plan is a read-only view of a compiled frame.
type Plan struct {
	Passes       []PassPlan
	Resources    []ResourceInfo
	RenderPasses int
	Events       int
	Semaphores   int
	Presents     bool
}

// Plan returns the compiled frame. It panics before Compile.
func (g *Graph) Plan() *Plan {
	f := g.f
	if f.state == stateDeclaring {
		g.fatalf("Plan before Compile")
	}
	out := &Plan{
		Passes:       make([]PassPlan, len(f.passes)),
		RenderPasses: len(f.renderPasses),
		Events:       len(f.events),
		Semaphores:   len(f.semaphores),
		Presents:     f.presentSem >= 0,
	}
	for i := range f.passes {
		out.Passes[i] = f.passes[i].plan
	}
	for i := range f.images {
		vi := &f.images[i]
		out.Resources = append(out.Resources, ResourceInfo{
			Name:      vi.desc.Name,
			Image:     ImageHandle(i + 1),
			Refs:      vi.refs,
			Imported:  vi.imported,
			Allocated: vi.physical != noPhysical,
			Accesses:  append([]ResourceStage(nil), vi.stages...),
		})
	}
	for i := range f.buffers {
		vb := &f.buffers[i]
		out.Resources = append(out.Resources, ResourceInfo{
			Name:      vb.desc.Name,
			Buffer:    BufferHandle(i + 1),
			Refs:      vb.refs,
			Imported:  vb.imported,
			Allocated: vb.physical != noPhysical,
			Accesses:  append([]ResourceStage(nil), vb.stages...),
		})
	}
	return out
}

// Edges lists every dependency of the surviving passes in consumer order.
func (p *Plan) Edges() []Dependency {
	var out []Dependency
	for i := range p.Passes {
		if p.Passes[i].Alive {
			out = append(out, p.Passes[i].Deps...)
		}
	}
	return out
}

// Alive returns the surviving passes.
func (p *Plan) Alive() []PassPlan {
	var out []PassPlan
	for _, pp := range p.Passes {
		if pp.Alive {
			out = append(out, pp)
		}
	}
	return out
}

// Resource looks up a resource by name.
func (p *Plan) Resource(name string) (ResourceInfo, bool) {
	for _, r := range p.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourceInfo{}, false
}
