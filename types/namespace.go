package types

import (
	"regexp"

	"github.com/rotisserie/eris"
)

// Namespace is a unique identifier for a world. It prefixes every key the
// archive writes to Redis, so it is restricted to characters that are safe
// in a Redis key and in a URL path segment.
type Namespace string

var namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

const maxNamespaceLength = 64

func (n Namespace) String() string {
	return string(n)
}

func (n Namespace) Validate() error {
	if len(n) == 0 {
		return eris.New("namespace must not be empty")
	}
	if len(n) > maxNamespaceLength {
		return eris.Errorf("namespace must be at most %d characters", maxNamespaceLength)
	}
	if !namespacePattern.MatchString(string(n)) {
		return eris.Errorf("namespace %q must contain only lowercase letters, digits, '-' and '_'", n)
	}
	return nil
}
