package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictMode(t *testing.T) {
	assert.True(t, Enabled(), "strict mode defaults on")

	assert.NotPanics(t, func() { That(true, "fine") })
	assert.PanicsWithValue(t, "trackevent: broken", func() { That(false, "broken") })
	assert.PanicsWithValue(t, "trackevent: bad id 7", func() { Thatf(false, "bad id %d", 7) })
	assert.PanicsWithValue(t, "trackevent: nope", func() { Fail("nope") })

	Disable()
	defer Enable()
	assert.False(t, Enabled())
	assert.NotPanics(t, func() { That(false, "ignored") })
	assert.NotPanics(t, func() { Fail("ignored") })
}
