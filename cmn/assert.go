package cmn

import "fmt"

// Assert panics with the given args if cond is false. Reserved for
// invariants the caller cannot violate through the public API — never
// used to validate untrusted input crossing the wire (see cmn/errors.go
// for that).
func Assert(cond bool, args ...interface{}) {
	if !cond {
		panic(fmt.Sprint("assertion failed: ", fmt.Sprint(args...)))
	}
}

// AssertNoErr is a shorthand for an invariant that is expressed as "this
// internal call must never fail".
func AssertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}
