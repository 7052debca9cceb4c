package utils

// Optional tells an omitted request field apart from one that was sent,
// including one sent empty.
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

