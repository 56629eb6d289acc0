package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "PS2042-06B", NormalizeModel("PS 2042-06 B"))
	assert.Equal(t, "PS2042-06B", NormalizeModel("ps 2042-06b\x00\x00"))
	assert.Equal(t, "", NormalizeModel("  "))
}

func TestLookupModel(t *testing.T) {
	r, ok := LookupModel("PS 2042-06B")
	require.True(t, ok)
	assert.Equal(t, Rating{Voltage: 42, Current: 6, Power: 100}, r)

	r, ok = LookupModel("PS 2084-05B rev2")
	require.True(t, ok, "suffix after model name")
	assert.Equal(t, 84.0, r.Voltage)

	_, ok = LookupModel("EL 3000")
	assert.False(t, ok)
}

func TestProfileFor(t *testing.T) {
	p, ok := ProfileFor("PS 2042-10B", 0)
	require.True(t, ok)
	require.NoError(t, p.Validate())
	assert.Equal(t, "PS 2042-10B", p.Model)
	assert.Equal(t, 10.0, p.NominalCurrent)

	_, ok = ProfileFor("unknown", 0)
	assert.False(t, ok)
}
