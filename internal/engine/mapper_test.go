package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapper_RecordAndLookup(t *testing.T) {
	m := NewMapper()

	m.Record("master-1", "child-a", "replica-a1")
	m.Record("master-1", "child-b", "replica-b1")
	m.Record("master-2", "child-a", "replica-a2")

	replicas := m.Lookup("master-1")
	assert.Equal(t, map[string]string{
		"child-a": "replica-a1",
		"child-b": "replica-b1",
	}, replicas)
	assert.Equal(t, map[string]string{"child-a": "replica-a2"}, m.Lookup("master-2"))
}

func TestMapper_LookupUnknownIsEmpty(t *testing.T) {
	m := NewMapper()
	assert.Empty(t, m.Lookup("never-placed"))
}

func TestMapper_LookupReturnsCopy(t *testing.T) {
	m := NewMapper()
	m.Record("master-1", "child-a", "replica-a1")

	got := m.Lookup("master-1")
	got["child-a"] = "tampered"

	assert.Equal(t, map[string]string{"child-a": "replica-a1"}, m.Lookup("master-1"))
}

func TestMapper_RecordOverwrites(t *testing.T) {
	m := NewMapper()
	m.Record("master-1", "child-a", "replica-old")
	m.Record("master-1", "child-a", "replica-new")

	assert.Equal(t, map[string]string{"child-a": "replica-new"}, m.Lookup("master-1"))
}
