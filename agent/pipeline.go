package agent

import (
	"context"
	"time"
)

// NodeFunc transforms the pipeline state.
type NodeFunc func(ctx context.Context, st State) State

// Node is a named pipeline step.
type Node struct {
	Name string
	Run  NodeFunc
}

// Pipeline runs a research node and then a synthesis node. There is no
// branching; each node sees the state the previous one returned.
type Pipeline struct {
	name  string
	nodes [2]Node
	cfg   nodeConfig
}

// NewPipeline composes research and synthesis into a pipeline.
func NewPipeline(name string, research, synthesis Node, opts ...Option) *Pipeline {
	return &Pipeline{
		name:  name,
		nodes: [2]Node{research, synthesis},
		cfg:   newNodeConfig(opts),
	}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Invoke runs both nodes in order on a copy of initial and returns the final state.
func (p *Pipeline) Invoke(ctx context.Context, initial State) State {
	st := initial.clone()
	for _, n := range p.nodes {
		start := time.Now()
		st = n.Run(ctx, st)
		elapsed := time.Since(start)

		p.cfg.metrics.observeNode(p.name, n.Name, elapsed)
		p.cfg.logger.Debug("Node finished",
			"pipeline", p.name,
			"node", n.Name,
			"duration", elapsed)
	}
	return st
}
