package engine

// Compose combines single-argument functions right to left:
// Compose(f, g, h)(x) == f(g(h(x))).
//
// Zero functions yield the identity; one function is returned unchanged.
func Compose[T any](fns ...func(T) T) func(T) T {
	switch len(fns) {
	case 0:
		return func(x T) T { return x }
	case 1:
		return fns[0]
	}

	chain := make([]func(T) T, len(fns))
	copy(chain, fns)
	return func(x T) T {
		for i := len(chain) - 1; i >= 0; i-- {
			x = chain[i](x)
		}
		return x
	}
}

// ComposeEnhancers combines enhancers so the first one listed is the
// outermost wrapper around store construction.
func ComposeEnhancers[S any](enhancers ...Enhancer[S]) Enhancer[S] {
	fns := make([]func(Creator[S]) Creator[S], len(enhancers))
	for i, e := range enhancers {
		fns[i] = e
	}
	return Compose(fns...)
}
