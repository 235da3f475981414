package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DefaultSpecs(t *testing.T) {
	engine := echoEngine()
	r, err := NewRegistry(engine, DefaultBackendSpecs()...)
	require.NoError(t, err)
	require.Equal(t, 4, r.Len())

	var names []string
	for _, b := range r.All() {
		names = append(names, b.Name)
		assert.Same(t, engine, b.Engine)
		assert.NotEmpty(t, b.Instruction)
		assert.NotEmpty(t, b.SuitableFor)
	}
	assert.Equal(t, []string{BackendGeneral, BackendTechnical, BackendCreative, BackendBusiness}, names)
}

func TestNewRegistry_RejectsBadInput(t *testing.T) {
	_, err := NewRegistry(nil, DefaultBackendSpecs()...)
	assert.Error(t, err, "nil engine")

	_, err = NewRegistry(echoEngine(), BackendSpec{Name: "a"}, BackendSpec{Name: "a"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewRegistry(echoEngine(), BackendSpec{Name: "  "})
	assert.ErrorContains(t, err, "empty")
}

func TestRegistry_Get(t *testing.T) {
	r := mustRegistry(echoEngine(), DefaultBackendSpecs()...)

	b, err := r.Get(BackendCreative)
	require.NoError(t, err)
	assert.Equal(t, "Creative Writing Assistant", b.DisplayName)

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrBackendNotFound))
}

func TestRegistry_AllReturnsCopy(t *testing.T) {
	r := mustRegistry(echoEngine(), DefaultBackendSpecs()...)

	all := r.All()
	all[0].Name = "mutated"

	b, err := r.Get(BackendGeneral)
	require.NoError(t, err)
	assert.Equal(t, BackendGeneral, b.Name)
	assert.Equal(t, BackendGeneral, r.All()[0].Name)
}
