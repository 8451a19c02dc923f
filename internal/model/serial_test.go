package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSerials(t *testing.T) {
	got := NormalizeSerials([]string{" SN-1 ", "SN-2", "", "SN-1", "  ", "SN-3"})
	assert.Equal(t, []string{"SN-1", "SN-2", "SN-3"}, got)

	assert.Empty(t, NormalizeSerials(nil))
	assert.Empty(t, NormalizeSerials([]string{"", "  "}))
}

func TestSerialDiff(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, SerialDiff([]string{"a", "b", "c"}, []string{"b"}))
	assert.Nil(t, SerialDiff([]string{"a"}, []string{"a"}))
	assert.Equal(t, []string{"a"}, SerialDiff([]string{"a"}, nil))
}

func TestSerialIntersect(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, SerialIntersect([]string{"a", "b", "c"}, []string{"c", "b"}))
	assert.Nil(t, SerialIntersect([]string{"a"}, []string{"b"}))
}

func TestSerialListRoundtrip(t *testing.T) {
	l := SerialList{"SN-1", "SN-2"}
	v, err := l.Value()
	require.NoError(t, err)

	var got SerialList
	require.NoError(t, got.Scan(v))
	assert.Equal(t, l, got)

	var fromNil SerialList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}
