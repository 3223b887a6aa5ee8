package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(StaticAnalyzer{"risk", "risk metrics", []Capability{CapabilityTools}}))

	a, err := r.Get("risk")
	require.NoError(t, err)
	assert.Equal(t, "risk", a.Name())
	assert.Equal(t, []Capability{CapabilityTools}, a.Capabilities())

	_, err = r.Get("nope")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(StaticAnalyzer{"risk", "first", nil}))

	err := r.Register(StaticAnalyzer{"risk", "second", nil})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestRegistryRejectsUnnamed(t *testing.T) {
	r := NewRegistry()
	err := r.Register(StaticAnalyzer{"", "anonymous", nil})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestRegistryListSorted(t *testing.T) {
	r := DefaultAnalyzers()
	infos := r.List()
	require.Len(t, infos, 4)
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].Name, infos[i].Name)
	}
	for _, info := range infos {
		assert.NotEmpty(t, info.Capabilities, info.Name)
	}
}
