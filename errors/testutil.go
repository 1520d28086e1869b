package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertCode checks the HTTP status carried by err. Plain errors pass only
// when the expected code is the default.
func AssertCode(t *testing.T, err error, code int) {
	switch err := err.(type) {
	case Error:
		assert.Equal(t, code, err.Code(), "code should be equal")
	default:
		if code != DefaultCode {
			assert.Fail(t, fmt.Sprintf("error is not Error and expected code != %d (default)", DefaultCode))
		}
	}
}
