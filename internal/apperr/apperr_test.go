package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("machine %s not found", "m1")))
	assert.Equal(t, KindConflict, KindOf(Conflict("duplicate code")))
	assert.Equal(t, KindPermission, KindOf(Permission("not yours")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad priority")))

	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(0), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("loading request: %w", NotFound("request r1 not found"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "machine m1 not found", NotFound("machine %s not found", "m1").Error())

	wrapped := &Error{Kind: KindValidation, Msg: "decode failed", Err: errors.New("eof")}
	assert.Equal(t, "decode failed: eof", wrapped.Error())
	assert.Equal(t, "eof", errors.Unwrap(wrapped).Error())
}
