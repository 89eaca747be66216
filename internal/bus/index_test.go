package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticIndex_Lookup(t *testing.T) {
	idx := NewStaticIndex(map[string]string{
		"Mira":  "engine-a",
		"tomas": "engine-b",
	})

	engineID, ok := idx.LookupEngineID("mira")
	assert.True(t, ok)
	assert.Equal(t, "engine-a", engineID)

	engineID, ok = idx.LookupEngineID("TOMAS")
	assert.True(t, ok)
	assert.Equal(t, "engine-b", engineID)

	_, ok = idx.LookupEngineID("Greta")
	assert.False(t, ok)
}

func TestNullIndex_NeverResolves(t *testing.T) {
	idx := NullIndex{}
	_, ok := idx.LookupEngineID("Mira")
	assert.False(t, ok)
}
