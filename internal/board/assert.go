//go:build !uochess_debug

package board

// assert is compiled out unless the uochess_debug build tag is set.
func assert(bool, string) {}
