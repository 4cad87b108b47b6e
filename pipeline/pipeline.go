package pipeline

import (
	"context"
	"sync"
)

// Processor is one stage of the pipeline. Process receives a frame and a
// push callback that forwards frames to the next stage. A processor may push
// zero, one, or several frames per input.
type Processor interface {
	Process(ctx context.Context, f Frame, push func(Frame))
}

// Source is implemented by processors that inject frames from background
// loops. The pipeline binds itself into each source at construction so
// injected frames enter at the head and traverse the full chain.
type Source interface {
	Bind(p *Pipeline)
}

// Pipeline runs frames through its processors in order and hands survivors
// to the sink. Push is serialized: within one pipeline, frames never
// interleave mid-chain.
type Pipeline struct {
	mu    sync.Mutex
	procs []Processor
	sink  func(Frame)
}

// New assembles a pipeline. sink receives every frame that survives the full
// chain; a nil sink discards them.
func New(sink func(Frame), procs ...Processor) *Pipeline {
	if sink == nil {
		sink = func(Frame) {}
	}
	p := &Pipeline{procs: procs, sink: sink}
	for _, proc := range procs {
		if src, ok := proc.(Source); ok {
			src.Bind(p)
		}
	}
	return p
}

// Push sends a frame through the whole chain.
func (p *Pipeline) Push(ctx context.Context, f Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.run(ctx, 0, f)
}

func (p *Pipeline) run(ctx context.Context, stage int, f Frame) {
	if ctx.Err() != nil {
		return
	}
	if stage >= len(p.procs) {
		p.sink(f)
		return
	}
	p.procs[stage].Process(ctx, f, func(next Frame) {
		p.run(ctx, stage+1, next)
	})
}
