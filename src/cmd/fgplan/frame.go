package main

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render/framegraph"
)

// Frame is a frame graph described in TOML.
type Frame struct {
	BackBuffer   string `toml:"back_buffer"`
	PresentQueue string `toml:"present_queue"`

	Images  []ImageDecl  `toml:"image"`
	Buffers []BufferDecl `toml:"buffer"`
	Passes  []PassDecl   `toml:"pass"`
}

type ImageDecl struct {
	Name     string    `toml:"name"`
	Width    uint32    `toml:"width"`
	Height   uint32    `toml:"height"`
	Layers   uint32    `toml:"layers"`
	Format   string    `toml:"format"`
	Clear    []float32 `toml:"clear"`
	Imported bool      `toml:"imported"`
}

type BufferDecl struct {
	Name        string `toml:"name"`
	Size        uint64 `toml:"size"`
	HostVisible bool   `toml:"host_visible"`
	Fill        uint32 `toml:"fill"`
	Imported    bool   `toml:"imported"`
}

type AccessDecl struct {
	Resource string   `toml:"resource"`
	Kind     string   `toml:"kind"`
	Stages   []string `toml:"stages"`
}

type PassDecl struct {
	Name   string       `toml:"name"`
	Kind   string       `toml:"kind"`
	Queue  string       `toml:"queue"`
	Src    string       `toml:"src"`
	Dst    string       `toml:"dst"`
	Target string       `toml:"target"`
	Size   int          `toml:"size"`
	Access []AccessDecl `toml:"access"`
}

var formats = map[string]vk.Format{
	"rgba8":   vk.FormatR8g8b8a8Unorm,
	"srgba8":  vk.FormatR8g8b8a8Srgb,
	"bgra8":   vk.FormatB8g8r8a8Unorm,
	"rgba16f": vk.FormatR16g16b16a16Sfloat,
	"rgba32f": vk.FormatR32g32b32a32Sfloat,
	"r32f":    vk.FormatR32Sfloat,
	"d32":     vk.FormatD32Sfloat,
	"d24s8":   vk.FormatD24UnormS8Uint,
}

var stageNames = map[string]vk.PipelineStageFlagBits{
	"vertex":   vk.PipelineStageVertexShaderBit,
	"fragment": vk.PipelineStageFragmentShaderBit,
	"compute":  vk.PipelineStageComputeShaderBit,
	"transfer": vk.PipelineStageTransferBit,
	"indirect": vk.PipelineStageDrawIndirectBit,
	"input":    vk.PipelineStageVertexInputBit,
}

func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "fgplan: decode frame")
	}
	return &f, nil
}

func LoadFrame(path string) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fgplan: read frame %s", path)
	}
	return ParseFrame(data)
}

func queueOf(name string) (framegraph.Queue, error) {
	if name == "" {
		return framegraph.QueueGraphics, nil
	}
	q, ok := framegraph.ParseQueue(name)
	if !ok {
		return 0, errors.Errorf("unknown queue %q", name)
	}
	return q, nil
}

func stagesOf(names []string) (vk.PipelineStageFlags, error) {
	var out vk.PipelineStageFlags
	for _, n := range names {
		bit, ok := stageNames[n]
		if !ok {
			return 0, errors.Errorf("unknown stage %q", n)
		}
		out |= vk.PipelineStageFlags(bit)
	}
	return out, nil
}

// declared resources by name
type symbols struct {
	images  map[string]framegraph.ImageHandle
	buffers map[string]framegraph.BufferHandle
}

func (s *symbols) image(name string) (framegraph.ImageHandle, error) {
	h, ok := s.images[name]
	if !ok {
		return framegraph.NoImage, errors.Errorf("unknown image %q", name)
	}
	return h, nil
}

func (s *symbols) buffer(name string) (framegraph.BufferHandle, error) {
	h, ok := s.buffers[name]
	if !ok {
		return framegraph.NoBuffer, errors.Errorf("unknown buffer %q", name)
	}
	return h, nil
}

// Build declares the frame on g. Graph usage errors still panic.
func (f *Frame) Build(g *framegraph.Graph) error {
	syms := &symbols{
		images:  make(map[string]framegraph.ImageHandle),
		buffers: make(map[string]framegraph.BufferHandle),
	}
	for _, d := range f.Images {
		desc, err := d.desc()
		if err != nil {
			return err
		}
		if d.Imported {
			syms.images[d.Name] = g.ImportImage(desc, framegraph.PhysicalImage{})
		} else {
			syms.images[d.Name] = g.CreateImage(desc)
		}
	}
	for _, d := range f.Buffers {
		if d.Imported {
			syms.buffers[d.Name] = g.ImportBuffer(d.desc(), framegraph.PhysicalBuffer{Size: d.Size})
		} else {
			syms.buffers[d.Name] = g.CreateBuffer(d.desc())
		}
	}
	for i := range f.Passes {
		if err := f.addPass(g, syms, &f.Passes[i]); err != nil {
			return errors.Wrapf(err, "pass %q", f.Passes[i].Name)
		}
	}
	if f.BackBuffer != "" {
		h, err := syms.image(f.BackBuffer)
		if err != nil {
			return errors.Wrap(err, "back_buffer")
		}
		g.SetBackBuffer(h)
		if f.PresentQueue != "" {
			q, err := queueOf(f.PresentQueue)
			if err != nil {
				return errors.Wrap(err, "present_queue")
			}
			g.SetPresentParams(nil, 0, q, nil)
		}
	}
	return nil
}

func (d *ImageDecl) desc() (framegraph.ImageDesc, error) {
	format := vk.FormatR8g8b8a8Unorm
	if d.Format != "" {
		f, ok := formats[d.Format]
		if !ok {
			return framegraph.ImageDesc{}, errors.Errorf("image %q: unknown format %q", d.Name, d.Format)
		}
		format = f
	}
	desc := framegraph.ImageDesc{
		Name:   d.Name,
		Width:  d.Width,
		Height: d.Height,
		Layers: d.Layers,
		Format: format,
	}
	if len(d.Clear) > 0 {
		desc.Initial = framegraph.InitialClear
		if framegraph.IsDepthFormat(format) {
			desc.Clear = framegraph.ClearDepthStencil{Depth: d.Clear[0]}
		} else {
			var c framegraph.ClearColor
			copy(c[:], d.Clear)
			desc.Clear = c
		}
	}
	return desc, nil
}

func (d *BufferDecl) desc() framegraph.BufferDesc {
	return framegraph.BufferDesc{
		Name:        d.Name,
		Size:        d.Size,
		HostVisible: d.HostVisible,
		Clear:       framegraph.ClearWord(d.Fill),
	}
}

func (f *Frame) addPass(g *framegraph.Graph, syms *symbols, p *PassDecl) error {
	q, err := queueOf(p.Queue)
	if err != nil {
		return err
	}
	switch p.Kind {
	case "", "graphics", "compute":
		return f.addRecordedPass(g, syms, p, q)
	case "blit":
		src, err := syms.image(p.Src)
		if err != nil {
			return err
		}
		dst, err := syms.image(p.Dst)
		if err != nil {
			return err
		}
		g.AddBlitPass(p.Name, q, src, dst, nil, vk.FilterLinear)
	case "clear":
		if h, ok := syms.images[p.Target]; ok {
			g.AddClearPass(p.Name, q, h)
			return nil
		}
		h, err := syms.buffer(p.Target)
		if err != nil {
			return err
		}
		g.AddClearBufferPass(p.Name, q, h)
	case "host-write":
		h, err := syms.buffer(p.Target)
		if err != nil {
			return err
		}
		g.AddHostWritePass(p.Name, q, h, 0, make([]byte, p.Size))
	default:
		return errors.Errorf("unknown pass kind %q", p.Kind)
	}
	return nil
}

type access struct {
	image  framegraph.ImageHandle
	buffer framegraph.BufferHandle
	kind   framegraph.AccessKind
	stages vk.PipelineStageFlags
}

func (f *Frame) addRecordedPass(g *framegraph.Graph, syms *symbols, p *PassDecl, q framegraph.Queue) error {
	// Resolve first so declaration errors come back as errors.
	accs := make([]access, 0, len(p.Access))
	for _, a := range p.Access {
		kind, ok := framegraph.ParseAccessKind(a.Kind)
		if !ok {
			return errors.Errorf("unknown access kind %q", a.Kind)
		}
		stages, err := stagesOf(a.Stages)
		if err != nil {
			return err
		}
		acc := access{kind: kind, stages: stages}
		if kind.IsImage() {
			acc.image, err = syms.image(a.Resource)
		} else {
			acc.buffer, err = syms.buffer(a.Resource)
		}
		if err != nil {
			return err
		}
		accs = append(accs, acc)
	}

	setup := func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		for _, a := range accs {
			if a.image.Valid() {
				b.UseImage(a.image, a.kind, a.stages)
			} else {
				b.UseBuffer(a.buffer, a.kind, a.stages)
			}
		}
		return nil
	}
	switch p.Kind {
	case "compute":
		g.AddComputePass(p.Name, q, setup)
	default:
		if q != framegraph.QueueGraphics {
			return errors.Errorf("graphics pass on the %s queue", q)
		}
		g.AddGraphicsPass(p.Name, setup)
	}
	return nil
}
