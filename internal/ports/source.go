package ports

// Source produces samples by calling Append on its own goroutine(s).
// Stop must not return until no further Append calls can happen.
type Source interface {
	Start(out SampleAppender) error
	Stop() error
	Name() string
}
