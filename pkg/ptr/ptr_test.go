package ptr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MatheusCampagnolo/kargo/pkg/ptr"
)

func TestValueOrZero(t *testing.T) {
	assert.Equal(t, 5, ptr.ValueOrZero(ptr.New(5)))
	assert.Equal(t, 0, ptr.ValueOrZero[int](nil))
	assert.Equal(t, "", ptr.ValueOrZero[string](nil))
}
