package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("extract 42: %w", NoQuestions("42"))

	assert.True(t, errors.Is(err, ErrNoQuestions))
	assert.False(t, errors.Is(err, ErrNotAvailable))
	assert.Equal(t, CodeNoQuestions, CodeOf(err))
}

func TestNotAvailable_WrapsLastCause(t *testing.T) {
	cause := Transport("fetch", errors.New("status 503"))
	err := NotAvailable("fetch questions", 3, cause)

	assert.True(t, errors.Is(err, ErrNotAvailable))
	assert.True(t, errors.Is(err, ErrRetryableTransport))
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "status 503")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transport("fetch", errors.New("timeout"))))
	assert.False(t, IsRetryable(TerminalParse("fetch", errors.New("bad json"))))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, `validate [INVALID_IDENTIFIER]: test id "abc" must be numeric`, InvalidIdentifier("abc").Error())
	assert.Equal(t, "[SANITIZATION_FAILURE]: x", (&Error{Code: CodeSanitizationFailure, Err: errors.New("x")}).Error())
}
