package engine

// ExpandVar is one (wild, fixed) pair a wildcarded lookup contributes to
// the caller's expansion-variable machinery.
type ExpandVar struct {
	Wild  string
	Fixed string
}

// ExpandSetup collects the expansion variables a Find call produces.
//
// The specification models this as a caller-owned counter plus two
// parallel arrays, pushed into by index; a *ExpandSetup plays the same
// role without exposing array bookkeeping to the engine. A nil
// *ExpandSetup is equivalent to a negative counter: expansion tracking is
// off and Find does no extra work.
type ExpandSetup struct {
	vars []ExpandVar
}

// NewExpandSetup returns an empty, enabled ExpandSetup.
func NewExpandSetup() *ExpandSetup { return &ExpandSetup{} }

// Vars returns the (wild, fixed) pairs pushed so far, in order.
func (s *ExpandSetup) Vars() []ExpandVar {
	if s == nil {
		return nil
	}
	return s.vars
}

// push records one pair. It is a no-op on a nil receiver so call sites
// don't need to guard every push with a nil check.
func (s *ExpandSetup) push(wild, fixed string) {
	if s == nil {
		return
	}
	s.vars = append(s.vars, ExpandVar{Wild: wild, Fixed: fixed})
}
