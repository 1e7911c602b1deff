package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestETagIsStableAndQuoted(t *testing.T) {
	a := ETag([]byte(`[{"type":"TextInput"}]`))
	b := ETag([]byte(`[{"type":"TextInput"}]`))
	c := ETag([]byte(`[{"type":"Slider"}]`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 34)
	assert.Equal(t, byte('"'), a[0])
	assert.Equal(t, byte('"'), a[len(a)-1])
}
