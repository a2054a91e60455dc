package preview

import (
	"strings"
	"testing"

	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	f := media.File{Name: "a.jpg"}

	ref := r.Create(f)
	other := r.Create(f)
	assert.True(t, strings.HasPrefix(ref, "pv_"))
	assert.NotEqual(t, ref, other)

	got, ok := r.Lookup(ref)
	require.True(t, ok)
	assert.Equal(t, "a.jpg", got.Name)

	r.Release(ref)
	r.Release(ref)
	r.Release("pv_unknown")

	_, ok = r.Lookup(ref)
	assert.False(t, ok)
	_, ok = r.Lookup(other)
	assert.True(t, ok)
}
