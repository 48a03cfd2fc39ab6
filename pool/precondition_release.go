//go:build release

package pool

// precondition is a no-op in release builds: check is never evaluated,
// matching the teacher's production.go stripping assertion bodies
// entirely rather than merely disabling them.
func precondition(check func() bool, err error) {}
