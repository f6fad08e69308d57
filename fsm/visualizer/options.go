package visualizer

// Options configures the visualization output.
type Options struct {
	// Direction controls diagram flow: "LR" (left-right) or "TD" (top-down)
	Direction string

	// ExpandWildcard draws "all" transitions as one edge from every state
	// that has no exact mapping, instead of from a pseudo-state named "all"
	ExpandWildcard bool

	// MarkTerminal links states without outgoing transitions to [*]
	MarkTerminal bool

	// Fenced wraps the diagram in a ```mermaid code fence
	Fenced bool

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		Direction:      "LR",
		ExpandWildcard: true,
		MarkTerminal:   true,
		Fenced:         true,
	}
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithExpandWildcard enables/disables wildcard expansion.
func (o Options) WithExpandWildcard(expand bool) Options {
	o.ExpandWildcard = expand

	return o
}

// WithMarkTerminal enables/disables terminal state markers.
func (o Options) WithMarkTerminal(mark bool) Options {
	o.MarkTerminal = mark

	return o
}

// WithFenced enables/disables the markdown code fence.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
