//go:build !release

package pool

// precondition panics with err if check() reports false. Compiled in by
// default; build with the release tag to strip these checks from a
// production binary.
func precondition(check func() bool, err error) {
	if !check() {
		log.Error().Err(err).Msg("precondition violated")
		panic(err)
	}
}
