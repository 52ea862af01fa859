// Package framegraph compiles a per-frame list of declared GPU passes into a
// physical execution plan.
//
// Passes are declared in execution order with AddGraphicsPass,
// AddComputePass and friends. Each pass's setup closure receives a
// PassBuilder to declare the images and buffers it reads and writes, and
// returns the closure that records its commands. Compile then runs five
// phases: cull passes that do not contribute to the back buffer, allocate
// surviving resources, derive a virtual barrier for every hazard on a
// resource's access timeline, build render passes for graphics passes, and
// lower the barriers to pipeline barriers, events and semaphores. Execute
// replays the surviving passes in order, one submission each.
//
// A Graph is owned by a single render thread. All virtual state lives in a
// frame value that Reset replaces; physical objects created while compiling
// stay owned by the Graph until Retire hands them to the caller.
package framegraph
