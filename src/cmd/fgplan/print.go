package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/framegraph/src/render/framegraph"
	"github.com/mxplusb/framegraph/src/render/nulldevice"
)

func printPlan(out io.Writer, plan *framegraph.Plan, dev *nulldevice.Device) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PASS\tKIND\tQUEUE\tSTATUS\tCOMMANDS")
	for i, p := range plan.Passes {
		status := "culled"
		cmds := ""
		if p.Alive {
			status = "alive"
			if s, ok := dev.Submission(p.Name); ok {
				cmds = opList(s.Commands)
			}
		}
		fmt.Fprintf(tw, "%d %s\t%s\t%s\t%s\t%s\n", i, p.Name, p.Kind, p.Queue, status, cmds)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCER\tCONSUMER\tRESOURCE\tHAZARD\tSYNC")
	for _, d := range plan.Edges() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", plan.Passes[d.Producer].Name, plan.Passes[d.Consumer].Name,
			resourceName(plan, &d), d.Barrier, d.Sync)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, p := range plan.Passes {
		if p.RenderPass == nil {
			continue
		}
		fmt.Fprintf(out, "render pass %s %dx%d\n", p.Name, p.RenderPass.Extent.Width, p.RenderPass.Extent.Height)
		for _, a := range p.RenderPass.Attachments {
			fmt.Fprintf(out, "  %-12s load=%s store=%s %s -> %s\n", plan.Resources[a.Image-1].Name,
				loadOp(a.Load), storeOp(a.Store), layout(a.InitialLayout), layout(a.FinalLayout))
		}
	}
	_, err := fmt.Fprintf(out, "\n%d render passes, %d events, %d semaphores, %d images, %d buffers allocated, present=%t\n",
		plan.RenderPasses, plan.Events, plan.Semaphores, len(dev.Images), len(dev.Buffers), plan.Presents)
	return err
}

func resourceName(plan *framegraph.Plan, d *framegraph.Dependency) string {
	for _, r := range plan.Resources {
		if (d.Image.Valid() && r.Image == d.Image) || (d.Buffer.Valid() && r.Buffer == d.Buffer) {
			return r.Name
		}
	}
	return "?"
}

func opList(cmds []nulldevice.Command) string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Op.String()
	}
	return strings.Join(names, ",")
}

func loadOp(op vk.AttachmentLoadOp) string {
	switch op {
	case vk.AttachmentLoadOpLoad:
		return "load"
	case vk.AttachmentLoadOpClear:
		return "clear"
	}
	return "dont-care"
}

func storeOp(op vk.AttachmentStoreOp) string {
	if op == vk.AttachmentStoreOpStore {
		return "store"
	}
	return "dont-care"
}

func layout(l vk.ImageLayout) string {
	switch l {
	case vk.ImageLayoutUndefined:
		return "undefined"
	case vk.ImageLayoutGeneral:
		return "general"
	case vk.ImageLayoutColorAttachmentOptimal:
		return "color-attachment"
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return "depth-stencil-attachment"
	case vk.ImageLayoutDepthStencilReadOnlyOptimal:
		return "depth-stencil-read-only"
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return "shader-read-only"
	case vk.ImageLayoutTransferSrcOptimal:
		return "transfer-src"
	case vk.ImageLayoutTransferDstOptimal:
		return "transfer-dst"
	case vk.ImageLayoutPresentSrc:
		return "present-src"
	}
	return fmt.Sprintf("layout(%d)", l)
}
