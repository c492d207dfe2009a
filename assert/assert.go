// Package assert is the module's single assertion surface: gotest.tools for
// value and error assertions, testify for the predicate style helpers. The
// wrappers exist so failure messages unwrap eris chains, stack traces
// included, instead of printing one opaque wrapped line.
package assert

import (
	gocmp "github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	testify "github.com/stretchr/testify/assert"
	gotest "gotest.tools/v3/assert"
)

type helperT interface {
	Helper()
}

func mark(t interface{}) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
}

// withTrace prepends the fully unwrapped error to the failure message.
func withTrace(err error, msgAndArgs []interface{}) []interface{} {
	return append([]interface{}{eris.ToString(err, true)}, msgAndArgs...)
}

func Assert(t gotest.TestingT, comparison gotest.BoolOrComparison, msgAndArgs ...interface{}) {
	mark(t)
	gotest.Assert(t, comparison, msgAndArgs...)
}

func Equal(t gotest.TestingT, x, y interface{}, msgAndArgs ...interface{}) {
	mark(t)
	gotest.Equal(t, x, y, msgAndArgs...)
}

func DeepEqual(t gotest.TestingT, x, y interface{}, opts ...gocmp.Option) {
	mark(t)
	gotest.DeepEqual(t, x, y, opts...)
}

func NilError(t gotest.TestingT, err error, msgAndArgs ...interface{}) {
	mark(t)
	gotest.NilError(t, err, withTrace(err, msgAndArgs)...)
}

func ErrorContains(t gotest.TestingT, err error, substring string, msgAndArgs ...interface{}) {
	mark(t)
	gotest.ErrorContains(t, err, substring, withTrace(err, msgAndArgs)...)
}

func ErrorIs(t gotest.TestingT, err error, expected error, msgAndArgs ...interface{}) {
	mark(t)
	gotest.ErrorIs(t, eris.Cause(err), eris.Cause(expected), withTrace(err, msgAndArgs)...)
}

func True(t testify.TestingT, value bool, msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.True(t, value, msgAndArgs...)
}

func False(t testify.TestingT, value bool, msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.False(t, value, msgAndArgs...)
}

func Contains(t testify.TestingT, s, contains interface{}, msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.Contains(t, s, contains, msgAndArgs...)
}

func Len(t testify.TestingT, object interface{}, length int, msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.Len(t, object, length, msgAndArgs...)
}

func Panics(t testify.TestingT, f func(), msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.Panics(t, f, msgAndArgs...)
}

func Nil(t testify.TestingT, object interface{}, msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.Nil(t, object, msgAndArgs...)
}

func NotNil(t testify.TestingT, object interface{}, msgAndArgs ...interface{}) bool {
	mark(t)
	return testify.NotNil(t, object, msgAndArgs...)
}
