package framegraph_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
	"github.com/mxplusb/framegraph/src/render/nulldevice"
)

func TestCullChain(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	var x, y, bb framegraph.ImageHandle
	a := g.AddComputePass("A", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		x = b.WriteStorageImage(b.CreateImage(colorImage("X")), 0)
		return nil
	})
	bp := g.AddComputePass("B", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.ReadStorageImage(x, 0)
		y = b.WriteStorageImage(b.CreateImage(colorImage("Y")), 0)
		return nil
	})
	c := g.AddGraphicsPass("C", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		bb = b.WriteColorAttachment(b.CreateImage(colorImage("Back")))
		return nil
	})
	g.SetBackBuffer(bb)
	g.Compile()

	require.False(t, g.PassAlive(a))
	require.False(t, g.PassAlive(bp))
	require.True(t, g.PassAlive(c))
	require.False(t, g.Allocated(x))
	require.False(t, g.Allocated(y))
	require.Len(t, dev.Images, 1)
}

func TestPassWithoutWritesIsCulled(t *testing.T) {
	g, _ := newGraph(t, sameFamily)
	var scene, out framegraph.ImageHandle
	a := g.AddGraphicsPass("scene", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		scene = b.WriteColorAttachment(b.CreateImage(colorImage("Scene")))
		return nil
	})
	dbg := g.AddComputePass("debug", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.ReadTexture(scene, stageCompute)
		return nil
	})
	post := g.AddComputePass("post", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.ReadTexture(scene, stageCompute)
		out = b.WriteStorageImage(b.CreateImage(colorImage("Out")), 0)
		return nil
	})
	g.SetBackBuffer(out)
	g.Compile()

	require.True(t, g.PassAlive(a))
	require.False(t, g.PassAlive(dbg))
	require.True(t, g.PassAlive(post))
	require.Equal(t, 1, g.ImageRefs(scene))

	plan := g.Plan()
	require.Equal(t, []edge{{a, post, framegraph.BarrierTransition}}, edgeSet(edgesOn(plan, "Scene")))
	info, ok := plan.Resource("Scene")
	require.True(t, ok)
	require.True(t, info.Allocated)
	require.Len(t, info.Accesses, 3)
}

func TestHostWriteWaitsAtConsumerStart(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	buf := g.CreateBuffer(framegraph.BufferDesc{Name: "Uniforms", Size: 64, HostVisible: true})
	up := g.AddHostWritePass("upload", framegraph.QueueGraphics, buf, 16, []byte{1, 2, 3, 4})
	var y, out framegraph.ImageHandle
	g.AddComputePass("Q", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		y = b.WriteStorageImage(b.CreateImage(colorImage("Y")), 0)
		return nil
	})
	p := g.AddComputePass("P", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.ReadUniformBuffer(buf, stageCompute)
		b.ReadStorageImage(y, 0)
		out = b.WriteStorageImage(b.CreateImage(colorImage("Out")), 0)
		return nil
	})
	g.SetBackBuffer(out)
	g.Compile()
	g.Execute()

	plan := g.Plan()
	deps := edgesOn(plan, "Uniforms")
	require.Equal(t, []edge{{up, p, framegraph.BarrierMemory}}, edgeSet(deps))
	require.Equal(t, framegraph.SyncPipelineBarrier, deps[0].Sync)
	require.Zero(t, plan.Events)
	require.Empty(t, dev.Events)

	start := plan.Passes[p].Start
	require.Equal(t, stageHost, start.SrcStages&stageHost)
	require.Equal(t, vk.AccessFlags(vk.AccessHostWriteBit), start.SrcAccess&vk.AccessFlags(vk.AccessHostWriteBit))
	require.Equal(t, vk.AccessFlags(vk.AccessUniformReadBit), start.DstAccess&vk.AccessFlags(vk.AccessUniformReadBit))

	require.Equal(t, []nulldevice.Write{{Offset: 16, Data: []byte{1, 2, 3, 4}}}, dev.Writes)
	require.Equal(t, []string{"upload", "Q", "P"}, dev.Order())
	require.Empty(t, ops(t, dev, "upload"))
	require.Equal(t, "Uniforms", dev.Buffers[0].Name)
}

func TestHostWriteRestrictions(t *testing.T) {
	t.Run("after a gpu read", func(t *testing.T) {
		g, _ := newGraph(t, sameFamily)
		buf := g.CreateBuffer(framegraph.BufferDesc{Name: "Uniforms", Size: 64, HostVisible: true})
		var out framegraph.ImageHandle
		g.AddComputePass("R", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
			b.ReadUniformBuffer(buf, stageCompute)
			out = b.WriteStorageImage(b.CreateImage(colorImage("Out")), 0)
			return nil
		})
		g.AddHostWritePass("late", framegraph.QueueGraphics, buf, 0, []byte{1})
		g.SetBackBuffer(out)
		require.PanicsWithValue(t, `framegraph: host write "late" follows "R" on Uniforms in the same frame`, g.Compile)
	})
	t.Run("device local buffer", func(t *testing.T) {
		g, _ := newGraph(t, sameFamily)
		buf := g.CreateBuffer(storageBuffer("Buf"))
		require.Panics(t, func() {
			g.AddHostWritePass("up", framegraph.QueueGraphics, buf, 0, []byte{1})
		})
	})
	t.Run("declared through a builder", func(t *testing.T) {
		g, _ := newGraph(t, sameFamily)
		buf := g.CreateBuffer(framegraph.BufferDesc{Name: "Uniforms", Size: 64, HostVisible: true})
		require.PanicsWithValue(t, `framegraph: pass "P": host writes need AddHostWritePass`, func() {
			g.AddComputePass("P", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
				b.UseBuffer(buf, framegraph.AccessHostWrite, 0)
				return nil
			})
		})
	})
}

func TestPresentFromRenderPass(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	bb := g.ImportImage(framegraph.ImageDesc{Name: "swapchain", Width: 1024, Height: 768, Format: vk.FormatB8g8r8a8Unorm}, framegraph.PhysicalImage{})
	main := g.AddGraphicsPass("main", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.WriteColorAttachment(bb)
		return nil
	})
	g.SetBackBuffer(bb)
	g.SetPresentParams(nil, 2, framegraph.QueueGraphics, nil)
	g.Compile()
	g.Execute()

	plan := g.Plan()
	require.True(t, plan.Presents)
	pp := plan.Passes[main]
	require.True(t, pp.WaitsPresent)
	require.True(t, pp.SignalsPresent)
	require.Equal(t, stageColor, pp.PresentStages)
	require.True(t, pp.End.Empty())

	rp := pp.RenderPass
	require.NotNil(t, rp.External)
	require.Equal(t, stageColor, rp.External.SrcStageMask)
	require.Equal(t, stageColor, rp.External.DstStageMask)
	require.Equal(t, vk.ImageLayoutUndefined, rp.Attachments[0].InitialLayout)
	require.Equal(t, vk.ImageLayoutPresentSrc, rp.Attachments[0].FinalLayout)
	require.Equal(t, vk.AttachmentStoreOpStore, rp.Attachments[0].Store)

	require.Empty(t, dev.Images)
	require.Equal(t, []string{"present"}, dev.Semaphores)
	require.Equal(t, []nulldevice.Present{{Queue: framegraph.QueueGraphics, ImageIndex: 2}}, dev.Presents)
	s, ok := dev.Submission("main")
	require.True(t, ok)
	// no acquire semaphore was given, so there is nothing to wait on
	require.Empty(t, s.Waits)
	require.Equal(t, 1, s.Signals)
}

func TestPresentFromCompute(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	bb := g.ImportImage(framegraph.ImageDesc{Name: "swapchain", Width: 1024, Height: 768, Format: vk.FormatB8g8r8a8Unorm}, framegraph.PhysicalImage{})
	post := g.AddComputePass("post", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.WriteStorageImage(bb, 0)
		return nil
	})
	g.SetBackBuffer(bb)
	g.SetPresentParams(nil, 0, framegraph.QueueGraphics, nil)
	g.Compile()
	g.Execute()

	pp := g.Plan().Passes[post]
	require.Len(t, pp.Start.Images, 1)
	require.Equal(t, vk.ImageLayoutUndefined, pp.Start.Images[0].OldLayout)
	require.Equal(t, vk.ImageLayoutGeneral, pp.Start.Images[0].NewLayout)

	require.Len(t, pp.End.Images, 1)
	end := pp.End.Images[0]
	require.Equal(t, vk.ImageLayoutGeneral, end.OldLayout)
	require.Equal(t, vk.ImageLayoutPresentSrc, end.NewLayout)
	require.Equal(t, vk.AccessFlags(vk.AccessShaderWriteBit), end.SrcAccess)
	require.Equal(t, uint32(vk.QueueFamilyIgnored), end.SrcFamily)
	require.Equal(t, stageCompute, pp.End.SrcStages)

	require.Equal(t, []nulldevice.Op{nulldevice.OpBarrier, nulldevice.OpBarrier}, ops(t, dev, "post"))
	require.Equal(t, stageCompute, pp.PresentStages)
	require.Len(t, dev.Presents, 1)
}

func TestBlitPass(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	var scene framegraph.ImageHandle
	g.AddGraphicsPass("scene", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		scene = b.WriteColorAttachment(b.CreateImage(colorImage("Scene")))
		return nil
	})
	bb := g.CreateImage(colorImage("Back"))
	blit := g.AddBlitPass("blit", framegraph.QueueGraphics, scene, bb, nil, vk.FilterLinear)
	g.SetBackBuffer(bb)
	g.Compile()
	g.Execute()

	require.Equal(t, []nulldevice.ImageCall{
		{Name: "Scene", Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit)},
		{Name: "Back", Usage: vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)},
	}, dev.Images)

	start := g.Plan().Passes[blit].Start
	require.Len(t, start.Images, 2)
	require.Equal(t, vk.ImageLayoutTransferSrcOptimal, start.Images[0].NewLayout)
	require.Equal(t, vk.ImageLayoutTransferDstOptimal, start.Images[1].NewLayout)
	require.Equal(t, []nulldevice.Op{nulldevice.OpBarrier, nulldevice.OpBlit}, ops(t, dev, "blit"))
}

func TestClearPasses(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	desc := colorImage("Target")
	desc.Clear = framegraph.ClearColor{0, 0, 0, 1}
	img := g.CreateImage(desc)
	g.AddClearPass("clear", framegraph.QueueGraphics, img)
	draw := g.AddGraphicsPass("draw", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.WriteColorAttachment(img)
		return nil
	})
	counters := g.CreateBuffer(framegraph.BufferDesc{Name: "Counters", Size: 258, Clear: framegraph.ClearWord(0xff)})
	g.AddClearBufferPass("zero", framegraph.QueueGraphics, counters)
	g.AddComputePass("count", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.ReadStorageBuffer(counters, 0)
		b.WriteStorageImage(img, 0)
		return nil
	})
	g.SetBackBuffer(img)
	g.Compile()
	g.Execute()

	s, _ := dev.Submission("clear")
	require.Equal(t, []nulldevice.Op{nulldevice.OpBarrier, nulldevice.OpClear}, ops(t, dev, "clear"))
	require.Equal(t, framegraph.ClearColor{0, 0, 0, 1}, s.Commands[1].Clear)

	// "zero" runs between draw and count, so the hand-off to count is an event.
	require.Equal(t, []nulldevice.Op{
		nulldevice.OpBarrier, nulldevice.OpBeginRenderPass, nulldevice.OpEndRenderPass, nulldevice.OpSetEvent,
	}, ops(t, dev, "draw"))
	require.Equal(t, []nulldevice.Op{nulldevice.OpBarrier, nulldevice.OpWaitEvent}, ops(t, dev, "count"))
	att := g.Plan().Passes[draw].RenderPass.Attachments[0]
	require.Equal(t, vk.AttachmentLoadOpLoad, att.Load)
	require.Equal(t, vk.ImageLayoutColorAttachmentOptimal, att.InitialLayout)

	s, _ = dev.Submission("zero")
	require.Len(t, s.Commands, 1)
	require.Equal(t, nulldevice.OpFill, s.Commands[0].Op)
	require.Equal(t, uint64(256), s.Commands[0].Size)
	require.Equal(t, uint32(0xff), s.Commands[0].Word)
}

func TestDeclarationPanics(t *testing.T) {
	noop := func(*framegraph.PassBuilder) framegraph.RecordFunc { return nil }
	tests := []struct {
		name string
		want string
		run  func(g *framegraph.Graph)
	}{
		{
			name: "duplicate declaration",
			want: `framegraph: pass "P" declares resource "Img" twice`,
			run: func(g *framegraph.Graph) {
				img := g.CreateImage(colorImage("Img"))
				g.AddComputePass("P", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
					b.ReadTexture(img, 0)
					b.WriteStorageImage(img, 0)
					return nil
				})
			},
		},
		{
			name: "attachment outside graphics",
			want: `framegraph: pass "C": color-attachment access outside a graphics pass`,
			run: func(g *framegraph.Graph) {
				g.AddComputePass("C", framegraph.QueueCompute, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
					b.WriteColorAttachment(b.CreateImage(colorImage("Img")))
					return nil
				})
			},
		},
		{
			name: "dangling handle",
			want: "framegraph: dangling image handle 9",
			run: func(g *framegraph.Graph) {
				g.AddComputePass("C", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
					b.ReadTexture(framegraph.ImageHandle(9), 0)
					return nil
				})
			},
		},
		{
			name: "wrong resource kind",
			want: `framegraph: pass "P": access texture used on the wrong resource kind`,
			run: func(g *framegraph.Graph) {
				buf := g.CreateBuffer(storageBuffer("Buf"))
				g.AddComputePass("P", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
					b.UseBuffer(buf, framegraph.AccessTexture, 0)
					return nil
				})
			},
		},
		{
			name: "declare after compile",
			want: "framegraph: adding pass late after Compile; call Reset first",
			run: func(g *framegraph.Graph) {
				g.Compile()
				g.AddGraphicsPass("late", noop)
			},
		},
		{
			name: "compile twice",
			want: "framegraph: Compile after Compile; call Reset first",
			run: func(g *framegraph.Graph) {
				g.Compile()
				g.Compile()
			},
		},
		{
			name: "execute before compile",
			want: "framegraph: Execute before Compile",
			run:  func(g *framegraph.Graph) { g.Execute() },
		},
		{
			name: "execute twice",
			want: "framegraph: frame already executed; call Reset first",
			run: func(g *framegraph.Graph) {
				g.Compile()
				g.Execute()
				g.Execute()
			},
		},
		{
			name: "plan before compile",
			want: "framegraph: Plan before Compile",
			run:  func(g *framegraph.Graph) { g.Plan() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGraph(t, sameFamily)
			require.PanicsWithValue(t, tt.want, func() { tt.run(g) })
		})
	}
}

func TestPassCapacity(t *testing.T) {
	cfg := render.DefaultConfig()
	cfg.MaxPasses = 2
	g := framegraph.New(render.NewContext(cfg), nulldevice.New(sameFamily))
	noop := func(*framegraph.PassBuilder) framegraph.RecordFunc { return nil }
	g.AddGraphicsPass("first", noop)
	g.AddGraphicsPass("second", noop)
	require.PanicsWithValue(t, `framegraph: pass "third" exceeds capacity of 2 passes`, func() {
		g.AddGraphicsPass("third", noop)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("declared resources", func(t *testing.T) {
		g, dev := newGraph(t, sameFamily)
		var bb framegraph.ImageHandle
		var width uint32
		g.AddGraphicsPass("A", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
			bb = b.WriteColorAttachment(b.CreateImage(colorImage("Back")))
			return func(cmd framegraph.CommandBuffer, reg *framegraph.Registry) {
				reg.Image(bb)
				width = reg.ImageDesc(bb).Width
				cmd.(*nulldevice.Commands).Mark("draw")
			}
		})
		g.SetBackBuffer(bb)
		g.Compile()
		g.Execute()

		require.Equal(t, uint32(1024), width)
		require.Equal(t, []nulldevice.Op{nulldevice.OpBeginRenderPass, nulldevice.OpMark, nulldevice.OpEndRenderPass}, ops(t, dev, "A"))
	})
	t.Run("undeclared resource", func(t *testing.T) {
		g, _ := newGraph(t, sameFamily)
		other := g.CreateImage(colorImage("Other"))
		var bb framegraph.ImageHandle
		g.AddGraphicsPass("A", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
			bb = b.WriteColorAttachment(b.CreateImage(colorImage("Back")))
			return func(cmd framegraph.CommandBuffer, reg *framegraph.Registry) {
				reg.Image(other)
			}
		})
		g.SetBackBuffer(bb)
		g.Compile()
		require.PanicsWithValue(t, `framegraph: pass "A" resolves image "Other" it never declared`, g.Execute)
	})
	t.Run("undeclared description", func(t *testing.T) {
		g, _ := newGraph(t, sameFamily)
		lut := g.CreateBuffer(storageBuffer("LUT"))
		var bb framegraph.ImageHandle
		g.AddGraphicsPass("A", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
			bb = b.WriteColorAttachment(b.CreateImage(colorImage("Back")))
			return func(cmd framegraph.CommandBuffer, reg *framegraph.Registry) {
				reg.BufferDesc(lut)
			}
		})
		g.SetBackBuffer(bb)
		g.Compile()
		require.PanicsWithValue(t, `framegraph: pass "A" reads the description of buffer "LUT" it never declared`, g.Execute)
	})
}

func buildTransitionFrame(g *framegraph.Graph) {
	var img1, img2 framegraph.ImageHandle
	g.AddGraphicsPass("A", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		img1 = b.WriteColorAttachment(b.CreateImage(colorImage("Img1")))
		return nil
	})
	g.AddComputePass("B", framegraph.QueueGraphics, func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.ReadTexture(img1, stageCompute)
		img2 = b.WriteStorageImage(b.CreateImage(colorImage("Img2")), stageCompute)
		return nil
	})
	g.AddGraphicsPass("unused", func(b *framegraph.PassBuilder) framegraph.RecordFunc {
		b.WriteColorAttachment(b.CreateImage(colorImage("Scratch")))
		return nil
	})
	g.SetBackBuffer(img2)
}

func TestRetireAndReset(t *testing.T) {
	g, _ := newGraph(t, sameFamily)
	buildTransitionFrame(g)
	g.Compile()
	g.Execute()

	res := g.Retire()
	require.Len(t, res.Images, 2)
	require.Len(t, res.RenderPasses, 1)
	require.Len(t, res.Framebuffers, 1)
	require.Empty(t, res.Events)
	require.True(t, g.Retire().Empty())

	g.Reset()
	require.Zero(t, g.PassCount())
	buildTransitionFrame(g)
	g.Compile()
	require.Len(t, g.Retire().Images, 2)
}

func TestWriteDot(t *testing.T) {
	g, _ := newGraph(t, sameFamily)
	buildTransitionFrame(g)
	g.Compile()

	var buf bytes.Buffer
	require.NoError(t, g.WriteDot(&buf))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "digraph framegraph {\n"))
	require.Contains(t, out, `p0 [label="A\lgraphics on graphics\lrender pass: 1 attachments\l"];`)
	require.Contains(t, out, `p0 -> p1 [label="Img1\nbarrier"];`)
	require.Contains(t, out, `p2 [label="unused\lgraphics on graphics\l", style=dashed, fontcolor=gray];`)
	require.True(t, strings.HasSuffix(out, "}\n"))
}

func TestDeviceFailurePanics(t *testing.T) {
	g, dev := newGraph(t, sameFamily)
	dev.Fail = func(op, name string) error {
		if op == "image" && name == "Img1" {
			return errors.New("out of device memory")
		}
		return nil
	}
	buildTransitionFrame(g)
	err := func() (err error) {
		defer render.CheckError(&err)
		g.Compile()
		return nil
	}()
	require.Error(t, err)
	require.Equal(t, `framegraph: create image "Img1": out of device memory`, err.Error())
}
