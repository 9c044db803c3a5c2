package normalize

import (
	"fmt"
	"sync"
)

// Normalizer bundles the state (negeri) and city (bandar) resolvers used by
// the school import pipeline.
type Normalizer struct {
	negeri     Resolver
	bandar     Resolver
	negeriDict *Dictionary
	bandarDict *Dictionary
}

// Options controls how a Normalizer is built.
type Options struct {
	ExtensionFile string // optional YAML with extra aliases
	CacheSize     int    // per-resolver LRU size; 0 disables caching
}

// New builds a Normalizer from the embedded dictionaries plus opts.ExtensionFile.
func New(opts Options) (*Normalizer, error) {
	negeri, err := DefaultNegeri()
	if err != nil {
		return nil, fmt.Errorf("negeri dictionary: %w", err)
	}
	bandar, err := DefaultBandar()
	if err != nil {
		return nil, fmt.Errorf("bandar dictionary: %w", err)
	}
	if opts.ExtensionFile != "" {
		ext, err := LoadExtension(opts.ExtensionFile)
		if err != nil {
			return nil, err
		}
		if err := negeri.Merge(ext.Negeri); err != nil {
			return nil, err
		}
		if err := bandar.Merge(ext.Bandar); err != nil {
			return nil, err
		}
	}
	return NewWithDictionaries(negeri, bandar, opts.CacheSize)
}

// NewWithDictionaries builds a Normalizer over caller-supplied dictionaries.
func NewWithDictionaries(negeri, bandar *Dictionary, cacheSize int) (*Normalizer, error) {
	n := &Normalizer{
		negeri:     NewResolver(negeri),
		bandar:     NewResolver(bandar),
		negeriDict: negeri,
		bandarDict: bandar,
	}
	if cacheSize > 0 {
		cn, err := NewCachedResolver(n.negeri, cacheSize)
		if err != nil {
			return nil, err
		}
		cb, err := NewCachedResolver(n.bandar, cacheSize)
		if err != nil {
			return nil, err
		}
		n.negeri, n.bandar = cn, cb
	}
	return n, nil
}

func (n *Normalizer) ResolveNegeri(raw string) Outcome { return n.negeri.Resolve(raw) }
func (n *Normalizer) ResolveBandar(raw string) Outcome { return n.bandar.Resolve(raw) }

// NormalizeNegeri returns the canonical state name, or a formatted fallback.
func (n *Normalizer) NormalizeNegeri(raw string) string { return n.negeri.Resolve(raw).Value }

// NormalizeBandar returns the canonical city name, or a formatted fallback.
func (n *Normalizer) NormalizeBandar(raw string) string { return n.bandar.Resolve(raw).Value }

// IsValidNegeri reports whether raw resolves to a known state.
func (n *Normalizer) IsValidNegeri(raw string) bool { return n.negeri.Resolve(raw).Matched }

func (n *Normalizer) StandardStates() []string { return n.negeriDict.Canonicals() }
func (n *Normalizer) StandardCities() []string { return n.bandarDict.Canonicals() }

func (n *Normalizer) NegeriDictionary() *Dictionary { return n.negeriDict }
func (n *Normalizer) BandarDictionary() *Dictionary { return n.bandarDict }

var (
	defaultOnce sync.Once
	defaultNorm *Normalizer
)

// Default returns a process-wide Normalizer over the embedded dictionaries.
// The embedded data is covered by tests, so a load failure is a build defect.
func Default() *Normalizer {
	defaultOnce.Do(func() {
		n, err := New(Options{})
		if err != nil {
			panic(err)
		}
		defaultNorm = n
	})
	return defaultNorm
}

// NormalizeNegeri resolves raw with the embedded state dictionary.
func NormalizeNegeri(raw string) string { return Default().NormalizeNegeri(raw) }

// NormalizeBandar resolves raw with the embedded city dictionary.
func NormalizeBandar(raw string) string { return Default().NormalizeBandar(raw) }
