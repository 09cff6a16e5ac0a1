package calc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Wrapping(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("evaluate: %w", newError(ErrCodeUnexpected, "1+1", cause))

	assert.Equal(t, ErrCodeUnexpected, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Unexpected error: boom")
}

func TestError_Messages(t *testing.T) {
	assert.Equal(t, MsgEmpty, newError(ErrCodeEmpty, "", nil).Message)
	assert.Equal(t, MsgParse, newError(ErrCodeParse, "x", nil).Message)
	assert.Equal(t, MsgDivisionByZero, newError(ErrCodeDivisionByZero, "1/0", nil).Message)
	assert.Equal(t, MsgForbidden, newError(ErrCodeForbidden, "os", nil).Message)
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeUnexpected, CodeOf(errors.New("plain")))
	assert.False(t, IsDivisionByZero(nil))
	assert.False(t, IsParseError(errors.New("plain")))
}

func TestError_String(t *testing.T) {
	err := newError(ErrCodeParse, "2 +", nil)
	assert.Equal(t, "PARSE_ERROR: Could not understand the math expression.", err.Error())
}
