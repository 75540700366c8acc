// # internal/params/tracker.go
package params

// ParamAssignmentTracker counts, per virtual parameter, how many call
// arguments have been bound against it. Call matching uses it to decide
// when a variadic slot may absorb more arguments and which required
// parameters remain unfilled for error reporting.
type ParamAssignmentTracker struct {
	details *ParamListDetails
	counts  []int
}

func NewParamAssignmentTracker(details *ParamListDetails) *ParamAssignmentTracker {
	return &ParamAssignmentTracker{
		details: details,
		counts:  make([]int, len(details.Params)),
	}
}

// Assign records one argument bound to the virtual parameter at index.
func (t *ParamAssignmentTracker) Assign(index int) {
	if index < 0 || index >= len(t.counts) {
		return
	}
	t.counts[index]++
}

// Count returns how many arguments were bound to the slot at index.
func (t *ParamAssignmentTracker) Count(index int) int {
	if index < 0 || index >= len(t.counts) {
		return 0
	}
	return t.counts[index]
}

// IsSatisfied reports whether the slot's minimum arity is met. Variadic
// slots and slots with defaults need zero arguments; everything else
// needs exactly one or more.
func (t *ParamAssignmentTracker) IsSatisfied(index int) bool {
	if index < 0 || index >= len(t.counts) {
		return true
	}
	vp := t.details.Params[index]
	if vp.HasDefault || index == t.details.ArgsIndex || index == t.details.KwargsIndex {
		return true
	}
	return t.counts[index] > 0
}

// UnassignedRequired returns the names of required parameters that have no
// bound argument, in declaration order.
func (t *ParamAssignmentTracker) UnassignedRequired() []string {
	var missing []string
	for i := range t.details.Params {
		if !t.IsSatisfied(i) {
			missing = append(missing, t.details.Params[i].Name)
		}
	}
	return missing
}
