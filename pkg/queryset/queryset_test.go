package queryset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type phase string

const (
	phaseSolid  phase = "Solid"
	phaseLiquid phase = "Liquid"
	phaseGas    phase = "Gas"
)

var allPhases = []phase{phaseSolid, phaseLiquid, phaseGas}

type suit string

const (
	suitClubs    suit = "Clubs"
	suitDiamonds suit = "Diamonds"
	suitHearts   suit = "Hearts"
	suitSpades   suit = "Spades"
	suitNone     suit = "None"
)

var allSuits = []suit{suitClubs, suitDiamonds, suitHearts, suitSpades, suitNone}

func TestQuery_Unconstrained(t *testing.T) {
	s := New("phase", allPhases)
	_, _, ok := s.Query()
	assert.False(t, ok, "a fresh set must not emit a parameter")
}

func TestQuery_SingleInclude(t *testing.T) {
	s := New("suit", allSuits)
	s.Include(suitHearts)

	key, value, ok := s.Query()
	require.True(t, ok)
	assert.Equal(t, "suit", key)
	assert.Equal(t, "Hearts", value)
}

func TestQuery_TwoIncludes(t *testing.T) {
	s := New("phase", allPhases)
	s.Include(phaseSolid).Include(phaseGas)

	key, value, ok := s.Query()
	require.True(t, ok)
	assert.Equal(t, "phase__in", key)
	assert.ElementsMatch(t, []string{"Solid", "Gas"}, strings.Split(value, ","))
}

func TestQuery_IncludingEverythingCollapses(t *testing.T) {
	s := New("phase", allPhases)
	for _, p := range allPhases {
		s.Include(p)
	}
	_, _, ok := s.Query()
	assert.False(t, ok, "the full enumeration is the same as no constraint")
}

func TestQuery_SingleExclude(t *testing.T) {
	s := New("phase", allPhases)
	s.Exclude(phaseLiquid)

	key, value, ok := s.Query()
	require.True(t, ok)
	assert.Equal(t, "phase__in", key)
	assert.ElementsMatch(t, []string{"Solid", "Gas"}, strings.Split(value, ","))
}

func TestQuery_ExcludeToSingleton(t *testing.T) {
	s := New("suit", allSuits)
	s.Exclude(suitClubs).Exclude(suitDiamonds).Exclude(suitSpades).Exclude(suitNone)

	key, value, ok := s.Query()
	require.True(t, ok)
	assert.Equal(t, "suit", key)
	assert.Equal(t, "Hearts", value)
}

func TestQuery_ExcludingEverything(t *testing.T) {
	s := New("phase", allPhases)
	for _, p := range allPhases {
		s.Exclude(p)
	}

	key, value, ok := s.Query()
	require.True(t, ok)
	assert.Equal(t, "phase__in", key)
	assert.Empty(t, value, "an empty allowed set is an explicit filter, not the absence of one")
}

func TestQuery_Asymmetry(t *testing.T) {
	// Exclude-then-include restores the full set: no parameter.
	s := New("suit", allSuits)
	s.Exclude(suitNone).Include(suitNone)
	_, _, ok := s.Query()
	assert.False(t, ok)

	// Include-then-exclude leaves the empty set: explicit empty filter.
	s2 := New("suit", allSuits)
	s2.Include(suitNone).Exclude(suitNone)
	key, value, ok := s2.Query()
	require.True(t, ok)
	assert.Equal(t, "suit__in", key)
	assert.Empty(t, value)
}

func TestQuery_MixedIncludeExclude(t *testing.T) {
	s := New("suit", allSuits)
	s.Include(suitClubs).Include(suitHearts).Exclude(suitClubs)

	key, value, ok := s.Query()
	require.True(t, ok)
	assert.Equal(t, "suit", key)
	assert.Equal(t, "Hearts", value)
}
