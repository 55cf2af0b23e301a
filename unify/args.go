package unify

// Args iterates the Cartesian product of N argument sources: with
// source sizes s1…sn it produces s1*…*sn concrete tuples. It is a
// finite, index-projected sequence; no recursion and no restart
// state.
type Args struct {
	sources [][]*Value
	stride  []int
	size    int
}

// NewArgs builds the product over the given sources.
func NewArgs(sources ...[]*Value) *Args {
	a := &Args{sources: sources}
	a.size = 1
	a.stride = make([]int, len(sources))
	for i := len(sources) - 1; i >= 0; i-- {
		a.stride[i] = a.size
		a.size *= len(sources[i])
	}
	return a
}

// Size returns the number of tuples.
func (a *Args) Size() int {
	if len(a.sources) == 0 {
		return 0
	}
	return a.size
}

// At projects the i-th tuple.
func (a *Args) At(i int) []*Value {
	tuple := make([]*Value, len(a.sources))
	for s := range a.sources {
		tuple[s] = a.sources[s][(i/a.stride[s])%len(a.sources[s])]
	}
	return tuple
}

// SourceSize returns the number of sources.
func (a *Args) SourceSize() int {
	return len(a.sources)
}

// validTuple reports whether every member of a tuple is still valid and
// mutually compatible.
func validTuple(tuple []*Value) bool {
	for _, v := range tuple {
		if v.Invalid() {
			return false
		}
	}
	return Compatible(tuple...)
}
