package result

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError_UsesKindMessage(t *testing.T) {
	err := fmt.Errorf("start: %w", New(KindPermission, "Camera error: denied"))

	r := FromError(err)

	assert.False(t, r.Success)
	assert.Equal(t, "Camera error: denied", r.Message)
	assert.Equal(t, KindPermission, KindOf(err))
}

func TestFromError_PlainError(t *testing.T) {
	r := FromError(errors.New("boom"))

	assert.False(t, r.Success)
	assert.Equal(t, "boom", r.Message)
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestResultClass(t *testing.T) {
	assert.Equal(t, "success", OK("done").Class())
	assert.Equal(t, "error", Fail("nope").Class())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "network", KindNetwork.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
