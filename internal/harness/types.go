package harness

import "github.com/roach88/gridstamp/internal/grid"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step   int         `json:"step"`
	Op     string      `json:"op"` // place, toggle, remove or set
	Seq    int64       `json:"seq,omitempty"`
	Token  string      `json:"token"`
	Kind   string      `json:"kind,omitempty"`
	Entity string      `json:"entity,omitempty"`
	Anchor *grid.Point `json:"anchor,omitempty"`
	Cells  int         `json:"cells,omitempty"`
	Error  string      `json:"error,omitempty"` // error code, if the step failed
	Dirty  []string    `json:"dirty,omitempty"`
}

// NamedLayer is a final layer snapshot.
type NamedLayer struct {
	Name   string `json:"name"`
	Values []int  `json:"values"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Size is the grid size the scenario ran on.
	Size grid.Size `json:"size"`

	// Layers holds the final contents of every layer in creation order.
	Layers []NamedLayer `json:"layers"`

	// Entities is the number of placed entities at the end.
	Entities int `json:"entities"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Layer returns the final snapshot of the named layer.
func (r *Result) Layer(name string) ([]int, bool) {
	name = grid.NormalizeName(name)
	for _, l := range r.Layers {
		if l.Name == name {
			return l.Values, true
		}
	}
	return nil, false
}

// LastDirty returns the dirty set recorded by the final step.
func (r *Result) LastDirty() []string {
	if len(r.Trace) == 0 {
		return nil
	}
	return r.Trace[len(r.Trace)-1].Dirty
}
