// Package nulldevice is a framegraph.Device that talks to no GPU. It
// records every object created and every command emitted, which is enough
// to inspect a compiled frame.
package nulldevice

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
)

type ImageCall struct {
	Name  string
	Usage vk.ImageUsageFlags
}

type BufferCall struct {
	Name  string
	Size  uint64
	Usage vk.BufferUsageFlags
}

type Write struct {
	Offset uint64
	Data   []byte
}

// Submit is one recorded submission.
type Submit struct {
	Queue    framegraph.Queue
	Name     string
	Commands []Command
	Waits    []framegraph.SubmitWait
	Signals  int
}

type Present struct {
	Queue      framegraph.Queue
	ImageIndex uint32
}

// Device records calls. Fail, when set, is consulted before every call
// and its error returned as the call's result.
type Device struct {
	Families render.QueueFamilies
	Fail     func(op, name string) error

	Images       []ImageCall
	Buffers      []BufferCall
	RenderPasses []*framegraph.RenderPassInfo
	Framebuffers int
	Events       []string
	Semaphores   []string
	Writes       []Write
	Submits      []Submit
	Presents     []Present
}

func New(families render.QueueFamilies) *Device {
	return &Device{Families: families}
}

func (d *Device) fail(op, name string) error {
	if d.Fail == nil {
		return nil
	}
	return d.Fail(op, name)
}

func (d *Device) QueueFamily(q framegraph.Queue) uint32 {
	switch q {
	case framegraph.QueueCompute:
		return d.Families.Compute
	case framegraph.QueueTransfer:
		return d.Families.Transfer
	}
	return d.Families.Graphics
}

func (d *Device) CreateImage(desc *framegraph.ImageDesc, usage vk.ImageUsageFlags) (framegraph.PhysicalImage, error) {
	if err := d.fail("image", desc.Name); err != nil {
		return framegraph.PhysicalImage{}, err
	}
	d.Images = append(d.Images, ImageCall{Name: desc.Name, Usage: usage})
	return framegraph.PhysicalImage{}, nil
}

func (d *Device) CreateBuffer(desc *framegraph.BufferDesc, usage vk.BufferUsageFlags) (framegraph.PhysicalBuffer, error) {
	if err := d.fail("buffer", desc.Name); err != nil {
		return framegraph.PhysicalBuffer{}, err
	}
	d.Buffers = append(d.Buffers, BufferCall{Name: desc.Name, Size: desc.Size, Usage: usage})
	return framegraph.PhysicalBuffer{Size: desc.Size}, nil
}

func (d *Device) CreateRenderPass(info *framegraph.RenderPassInfo) (vk.RenderPass, error) {
	if err := d.fail("render-pass", info.Name); err != nil {
		return nil, err
	}
	d.RenderPasses = append(d.RenderPasses, info)
	return nil, nil
}

func (d *Device) CreateFramebuffer(rp vk.RenderPass, views []vk.ImageView, extent vk.Extent2D, layers uint32) (vk.Framebuffer, error) {
	if err := d.fail("framebuffer", ""); err != nil {
		return nil, err
	}
	d.Framebuffers++
	return nil, nil
}

func (d *Device) CreateEvent(name string) (vk.Event, error) {
	if err := d.fail("event", name); err != nil {
		return nil, err
	}
	d.Events = append(d.Events, name)
	return nil, nil
}

func (d *Device) CreateSemaphore(name string) (vk.Semaphore, error) {
	if err := d.fail("semaphore", name); err != nil {
		return nil, err
	}
	d.Semaphores = append(d.Semaphores, name)
	return nil, nil
}

func (d *Device) WriteBuffer(buf framegraph.PhysicalBuffer, offset uint64, data []byte) error {
	if err := d.fail("write", ""); err != nil {
		return err
	}
	if offset+uint64(len(data)) > buf.Size {
		return errors.Errorf("nulldevice: write of %d bytes at %d overflows buffer of %d", len(data), offset, buf.Size)
	}
	d.Writes = append(d.Writes, Write{Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Device) BeginCommands(q framegraph.Queue, name string) (framegraph.CommandBuffer, error) {
	if err := d.fail("begin", name); err != nil {
		return nil, err
	}
	return &Commands{queue: q, name: name}, nil
}

func (d *Device) Submit(s *framegraph.Submission) error {
	if err := d.fail("submit", s.Name); err != nil {
		return err
	}
	cmds, ok := s.Commands.(*Commands)
	if !ok {
		return errors.Errorf("nulldevice: foreign command buffer in %q", s.Name)
	}
	d.Submits = append(d.Submits, Submit{
		Queue:    s.Queue,
		Name:     s.Name,
		Commands: cmds.List,
		Waits:    append([]framegraph.SubmitWait(nil), s.Waits...),
		Signals:  len(s.Signals),
	})
	return nil
}

func (d *Device) Present(p *framegraph.PresentParams, wait vk.Semaphore) error {
	if err := d.fail("present", ""); err != nil {
		return err
	}
	d.Presents = append(d.Presents, Present{Queue: p.Queue, ImageIndex: p.ImageIndex})
	return nil
}

// Submission looks up the submission of a pass by name.
func (d *Device) Submission(name string) (Submit, bool) {
	for _, s := range d.Submits {
		if s.Name == name {
			return s, true
		}
	}
	return Submit{}, false
}

// Order returns the submitted pass names in submission order.
func (d *Device) Order() []string {
	out := make([]string, len(d.Submits))
	for i, s := range d.Submits {
		out[i] = s.Name
	}
	return out
}

var _ framegraph.Device = (*Device)(nil)
