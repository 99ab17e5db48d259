package library

// MissReason says why a lookup produced no entity.
type MissReason int

const (
	// MissNone marks a hit.
	MissNone MissReason = iota
	// MissNotFound means the backend answered and had nothing.
	MissNotFound
	// MissUnsupported means the backend cannot perform this kind of lookup.
	MissUnsupported
	// MissTransient means the request failed (network, rate limit, parse) and was not cached.
	MissTransient
)

func (m MissReason) String() string {
	switch m {
	case MissNone:
		return "hit"
	case MissNotFound:
		return "not found"
	case MissUnsupported:
		return "unsupported"
	case MissTransient:
		return "transient failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of one resolve call.
type Result[T any] struct {
	Value  T
	Miss   MissReason
	Cached bool
}

// Found reports whether the lookup produced a value.
func (r Result[T]) Found() bool {
	return r.Miss == MissNone
}

func hit[T any](v T, cached bool) Result[T] {
	return Result[T]{Value: v, Cached: cached}
}

func miss[T any](reason MissReason, cached bool) Result[T] {
	return Result[T]{Miss: reason, Cached: cached}
}
