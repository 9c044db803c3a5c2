package normalize

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/negeri.yaml data/bandar.yaml
var dataFS embed.FS

// Entry is one canonical name and the raw spellings known to mean it.
type Entry struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`

	keys []string // canonicalized variants, label first, deduplicated
}

// PrefixRule expands a leading abbreviated token ("bdr" -> "bandar").
type PrefixRule struct {
	Abbr string `yaml:"abbr"`
	Full string `yaml:"full"`

	re *regexp.Regexp
}

// Dictionary is the alias table of one naming domain. It is data, not code:
// resolvers receive it as a value and never branch on specific names.
type Dictionary struct {
	Domain          string            `yaml:"domain"`
	MinSubstringLen int               `yaml:"min_substring_len"`
	Entries         []Entry           `yaml:"entries"`
	Prefixes        []PrefixRule      `yaml:"prefixes"`
	Acronyms        map[string]string `yaml:"acronyms"`
	SmallWords      []string          `yaml:"small_words"`

	exact map[string]int
	small map[string]struct{}
}

// ParseDictionary decodes and compiles a YAML alias table.
func ParseDictionary(b []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	if err := d.compile(); err != nil {
		return nil, err
	}
	return &d, nil
}

func loadEmbedded(name string) (*Dictionary, error) {
	b, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return nil, err
	}
	return ParseDictionary(b)
}

// DefaultNegeri returns a fresh copy of the built-in state dictionary.
func DefaultNegeri() (*Dictionary, error) { return loadEmbedded("negeri.yaml") }

// DefaultBandar returns a fresh copy of the built-in city dictionary.
func DefaultBandar() (*Dictionary, error) { return loadEmbedded("bandar.yaml") }

// Extension is the shape of an operator-supplied alias file. Either section may
// be omitted.
type Extension struct {
	Negeri *Dictionary `yaml:"negeri"`
	Bandar *Dictionary `yaml:"bandar"`
}

// LoadExtension reads an alias file from disk. The sections are not compiled:
// they only make sense merged into a base dictionary.
func LoadExtension(path string) (*Extension, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary extension: %w", err)
	}
	var ext Extension
	if err := yaml.Unmarshal(b, &ext); err != nil {
		return nil, fmt.Errorf("decode dictionary extension %s: %w", path, err)
	}
	return &ext, nil
}

// Merge folds ext into d. Variants for an existing canonical name are appended
// to it; unknown canonical names become new entries after the built-in ones, so
// they lose substring tie-breaks to them. Prefix rules are appended, acronyms
// override.
func (d *Dictionary) Merge(ext *Dictionary) error {
	if ext == nil {
		return nil
	}
	pos := make(map[string]int, len(d.Entries))
	for i, e := range d.Entries {
		pos[e.Canonical] = i
	}
	for _, e := range ext.Entries {
		if i, ok := pos[e.Canonical]; ok {
			d.Entries[i].Variants = append(d.Entries[i].Variants, e.Variants...)
			continue
		}
		pos[e.Canonical] = len(d.Entries)
		d.Entries = append(d.Entries, Entry{Canonical: e.Canonical, Variants: e.Variants})
	}
	d.Prefixes = append(d.Prefixes, ext.Prefixes...)
	if len(ext.Acronyms) > 0 && d.Acronyms == nil {
		d.Acronyms = make(map[string]string, len(ext.Acronyms))
	}
	for k, v := range ext.Acronyms {
		d.Acronyms[k] = v
	}
	d.SmallWords = append(d.SmallWords, ext.SmallWords...)
	return d.compile()
}

// compile canonicalizes every variant and rejects a dictionary in which the
// same spelling is registered under two canonical names: exact lookups would
// silently depend on entry order.
func (d *Dictionary) compile() error {
	d.exact = make(map[string]int)
	for i := range d.Entries {
		e := &d.Entries[i]
		if strings.TrimSpace(e.Canonical) == "" {
			return fmt.Errorf("dictionary %s: entry %d has no canonical name", d.Domain, i)
		}
		e.keys = e.keys[:0]
		for _, v := range append([]string{e.Canonical}, e.Variants...) {
			k := Canonicalize(v)
			if k == "" {
				continue
			}
			if owner, ok := d.exact[k]; ok {
				if owner != i {
					return fmt.Errorf("dictionary %s: variant %q registered under both %q and %q",
						d.Domain, v, d.Entries[owner].Canonical, e.Canonical)
				}
				continue
			}
			d.exact[k] = i
			e.keys = append(e.keys, k)
		}
	}
	for i := range d.Prefixes {
		p := &d.Prefixes[i]
		abbr := Canonicalize(p.Abbr)
		if abbr == "" || p.Full == "" {
			return fmt.Errorf("dictionary %s: prefix rule %d is incomplete", d.Domain, i)
		}
		p.re = regexp.MustCompile(`^` + regexp.QuoteMeta(abbr) + `(?:\.\s*|\s+|$)`)
	}
	acr := make(map[string]string, len(d.Acronyms))
	for k, v := range d.Acronyms {
		acr[strings.ToLower(k)] = v
	}
	d.Acronyms = acr
	d.small = make(map[string]struct{}, len(d.SmallWords))
	for _, w := range d.SmallWords {
		d.small[strings.ToLower(w)] = struct{}{}
	}
	return nil
}

// Canonicals lists the canonical names in dictionary order.
func (d *Dictionary) Canonicals() []string {
	out := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, e.Canonical)
	}
	return out
}

// Aliases returns every raw variant registered under canonical, as written in
// the source data.
func (d *Dictionary) Aliases(canonical string) []string {
	for _, e := range d.Entries {
		if e.Canonical == canonical {
			return append([]string(nil), e.Variants...)
		}
	}
	return nil
}

// IsCanonical reports whether name is exactly one of the canonical labels.
func (d *Dictionary) IsCanonical(name string) bool {
	for _, e := range d.Entries {
		if e.Canonical == name {
			return true
		}
	}
	return false
}
