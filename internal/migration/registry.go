package migration

// Registry is an append-only record of declared migration steps. A registry
// is constructed explicitly and handed to the orchestrator so independent
// runs never share state.
//
// Declaration happens once, during a single-threaded load phase before
// orchestration begins; the registry is not safe for concurrent declaration.
type Registry struct {
	steps []Step
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Declare appends a migration step. Versions are rounded to two fractional
// digits on entry; validation (positivity, uniqueness) happens when the
// orchestrator runs, so declaration itself never fails.
func (r *Registry) Declare(version float64, program Program) {
	r.steps = append(r.steps, Step{
		Version: RoundVersion(version),
		Upgrade: program,
	})
}

// Steps returns the declared steps. Order is unspecified with respect to
// declaration; the orchestrator sorts before executing.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Len returns the number of declared steps
func (r *Registry) Len() int {
	return len(r.steps)
}
