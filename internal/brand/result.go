package brand

// Result tells a caller whether a value came from real signals or is a
// documented default substituted after a local recovery.
type Result[T any] struct {
	Value     T
	Recovered bool
	Reason    error
}

func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Recover[T any](v T, reason error) Result[T] {
	return Result[T]{Value: v, Recovered: true, Reason: reason}
}
