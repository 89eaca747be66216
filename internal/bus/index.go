package bus

import "strings"

// PlayerLocationIndex resolves which engine hosts a player, when known.
// Resolution is an optimization only; a miss means the caller falls back to
// Broadcast.
type PlayerLocationIndex interface {
	// LookupEngineID returns the hosting engine for a player name.
	LookupEngineID(name string) (string, bool)
}

// StaticIndex resolves from a fixed name-to-engine table, typically read
// from configuration. Lookups are case-insensitive.
type StaticIndex struct {
	byName map[string]string
}

// NewStaticIndex builds an index from a name-to-engine map.
func NewStaticIndex(entries map[string]string) *StaticIndex {
	byName := make(map[string]string, len(entries))
	for name, engineID := range entries {
		byName[strings.ToLower(name)] = engineID
	}
	return &StaticIndex{byName: byName}
}

// LookupEngineID implements PlayerLocationIndex.
func (idx *StaticIndex) LookupEngineID(name string) (string, bool) {
	engineID, ok := idx.byName[strings.ToLower(name)]
	return engineID, ok
}

// NullIndex never resolves, forcing broadcast fallback everywhere.
type NullIndex struct{}

// LookupEngineID implements PlayerLocationIndex.
func (NullIndex) LookupEngineID(string) (string, bool) {
	return "", false
}
