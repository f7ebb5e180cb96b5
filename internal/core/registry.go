package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry    = make(map[string]SchemaDefinition) // by Info.Key
	bySignature = make(map[string]string)           // Signature.Key() -> Info.Key
	registryMu  sync.RWMutex
)

// Register adds a schema definition to the registry.
// Panics on an empty signature or when the key or signature is already
// registered.
func Register(def SchemaDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if len(def.Signature) == 0 {
		panic(fmt.Sprintf("schema %s has an empty signature", def.Info.Key))
	}
	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("schema already registered: %s", def.Info.Key))
	}
	sig := def.Signature.Key()
	if other, exists := bySignature[sig]; exists {
		panic(fmt.Sprintf("schema %s has the same signature as %s", def.Info.Key, other))
	}

	registry[def.Info.Key] = def
	bySignature[sig] = def.Info.Key
}

// Identify finds the schema whose signature equals columns exactly.
// Returns ErrUnknownSchema when nothing matches and ErrNotSupported, along
// with the definition, when the match has no converter.
func Identify(columns []string) (SchemaDefinition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	key, ok := bySignature[Signature(columns).Key()]
	if !ok {
		return SchemaDefinition{}, fmt.Errorf("%w: %d columns %q", ErrUnknownSchema, len(columns), columns)
	}
	def := registry[key]
	if !def.Supported() {
		return def, fmt.Errorf("%w: %s", ErrNotSupported, key)
	}
	return def, nil
}

// Get returns a schema definition by key.
// Returns false if not found.
func Get(key string) (SchemaDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered schema definitions.
// Sorted by exchange then by key for consistent ordering.
func All() []SchemaDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SchemaDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Exchange != result[j].Info.Exchange {
			return result[i].Info.Exchange < result[j].Info.Exchange
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Exchanges returns all unique exchange names.
// Sorted alphabetically.
func Exchanges() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Exchange] = true
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}

	sort.Strings(names)
	return names
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]SchemaDefinition)
	bySignature = make(map[string]string)
}
