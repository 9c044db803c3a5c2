package normalize

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Outcome is the result of resolving one raw value. Matched is false when the
// value was only reformatted (title case, prefix expansion) and is not a
// dictionary name.
type Outcome struct {
	Value   string `json:"value"`
	Matched bool   `json:"matched"`
}

// Resolver maps raw text to a canonical name. Implementations never fail: the
// worst case is a formatted fallback with Matched=false.
type Resolver interface {
	Resolve(raw string) Outcome
}

// DictResolver resolves against a Dictionary: exact variant match anywhere
// first, then the first entry with a substring match, then prefix expansion
// and title-case formatting.
type DictResolver struct {
	dict *Dictionary
}

func NewResolver(d *Dictionary) *DictResolver { return &DictResolver{dict: d} }

func (r *DictResolver) Dictionary() *Dictionary { return r.dict }

func (r *DictResolver) Resolve(raw string) Outcome {
	in := Canonicalize(raw)
	if in == "" {
		return Outcome{}
	}
	d := r.dict
	if i, ok := d.exact[in]; ok {
		return Outcome{Value: d.Entries[i].Canonical, Matched: true}
	}
	if i := d.substringEntry(in); i >= 0 {
		return Outcome{Value: d.Entries[i].Canonical, Matched: true}
	}
	return Outcome{Value: d.format(d.expandPrefix(in))}
}

// substringEntry returns the first entry (in dictionary order) with a variant
// longer than MinSubstringLen that contains, or is contained in, in.
func (d *Dictionary) substringEntry(in string) int {
	limit := d.MinSubstringLen
	for i, e := range d.Entries {
		for _, k := range e.keys {
			if len(k) <= limit {
				continue
			}
			if strings.Contains(in, k) || (len(in) > limit && strings.Contains(k, in)) {
				return i
			}
		}
	}
	return -1
}

// expandPrefix rewrites the leading token with the first matching prefix rule.
func (d *Dictionary) expandPrefix(in string) string {
	for _, p := range d.Prefixes {
		if p.re.MatchString(in) {
			out := p.re.ReplaceAllLiteralString(in, p.Full+" ")
			return reSpaces.ReplaceAllString(strings.TrimSpace(out), " ")
		}
	}
	return in
}

// format title-cases every token, keeps small words lower case after the first
// token and restores known acronyms as whole tokens.
func (d *Dictionary) format(in string) string {
	words := strings.Fields(in)
	for i, w := range words {
		if rep, ok := d.Acronyms[w]; ok {
			words[i] = rep
			continue
		}
		if _, ok := d.small[w]; ok && i > 0 {
			continue
		}
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

// CachedResolver memoizes another Resolver. Import files repeat the same few
// dozen state and town spellings thousands of times.
type CachedResolver struct {
	next  Resolver
	cache *lru.Cache[string, Outcome]
}

func NewCachedResolver(next Resolver, size int) (*CachedResolver, error) {
	c, err := lru.New[string, Outcome](size)
	if err != nil {
		return nil, err
	}
	return &CachedResolver{next: next, cache: c}, nil
}

func (c *CachedResolver) Resolve(raw string) Outcome {
	if o, ok := c.cache.Get(raw); ok {
		return o
	}
	o := c.next.Resolve(raw)
	c.cache.Add(raw, o)
	return o
}

// Len reports how many distinct raw values are cached.
func (c *CachedResolver) Len() int { return c.cache.Len() }
