// Command fgplan compiles a frame graph described in TOML and prints the
// synchronization it lowers to, without a GPU.
//
//	fgplan [-config graph.toml] [-dot] [-v] frame.toml
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mxplusb/framegraph/src/render"
	"github.com/mxplusb/framegraph/src/render/framegraph"
	"github.com/mxplusb/framegraph/src/render/nulldevice"
)

func main() {
	configPath := flag.String("config", "", "graph config `file` (TOML)")
	dot := flag.Bool("dot", false, "print a Graphviz graph instead of the plan")
	verbose := flag.Bool("v", false, "log compile phases to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] frame.toml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		render.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(os.Stdout, flag.Arg(0), *configPath, *dot); err != nil {
		fmt.Fprintln(os.Stderr, "fgplan:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, framePath, configPath string, dot bool) (err error) {
	defer render.CheckError(&err)

	cfg := render.DefaultConfig()
	if configPath != "" {
		if cfg, err = render.LoadConfig(configPath); err != nil {
			return err
		}
	}
	frame, err := LoadFrame(framePath)
	if err != nil {
		return err
	}
	return compile(out, render.NewContext(cfg), frame, dot)
}

func compile(out io.Writer, ctx *render.Context, frame *Frame, dot bool) (err error) {
	defer render.CheckError(&err)

	dev := nulldevice.New(ctx.Families())
	g := framegraph.New(ctx, dev)
	if err := frame.Build(g); err != nil {
		return err
	}
	g.Compile()
	if dot {
		return g.WriteDot(out)
	}
	g.Execute()
	return printPlan(out, g.Plan(), dev)
}
