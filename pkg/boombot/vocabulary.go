package boombot

import (
	"sort"
	"strings"
)

var defaultSectors = []string{
	"banking", "pharma", "it", "auto", "fmcg", "steel", "oil", "telecom",
	"real estate", "power", "textiles", "cement", "media", "aviation",
	"chemicals", "fertilizers", "metals", "infrastructure", "retail",
	"healthcare", "finance", "insurance", "mutual funds", "nbfc",
	"technology", "software", "hardware", "semiconductors", "energy",
	"renewable energy", "solar", "wind", "coal", "gas", "petroleum",
	"automobiles", "two wheelers", "commercial vehicles", "passenger cars",
	"construction", "engineering", "capital goods", "industrial", "defense",
}

// Keys are consulted in this order by the fuzzy and qualifier layers.
var defaultSynonyms = []Synonym{
	{"it", "it"},
	{"info tech", "it"},
	{"information technology", "it"},
	{"tech", "technology"},
	{"auto", "auto"},
	{"automobile", "automobiles"},
	{"car", "automobiles"},
	{"bank", "banking"},
	{"banks", "banking"},
	{"pharma", "pharma"},
	{"pharmaceutical", "pharma"},
	{"fmcg", "fmcg"},
	{"consumer goods", "fmcg"},
	{"steel", "steel"},
	{"oil", "oil"},
	{"petroleum", "petroleum"},
	{"telecom", "telecom"},
	{"telecommunication", "telecom"},
	{"real estate", "real estate"},
	{"realty", "real estate"},
	{"power", "power"},
	{"energy", "energy"},
	{"cement", "cement"},
	{"chemicals", "chemicals"},
	{"chemical", "chemicals"},
	{"textiles", "textiles"},
	{"textile", "textiles"},
	{"metals", "metals"},
	{"metal", "metals"},
}

var defaultQualifiers = []string{"sector", "industry", "stocks", "shares", "companies"}

// Synonym maps an alternate spelling to a canonical or related sector token.
type Synonym struct {
	Key    string `json:"key" yaml:"key"`
	Sector string `json:"sector" yaml:"sector"`
}

// Vocabulary is the frozen set of sector names, synonyms and qualifier words
// the matcher reads. Build it once with NewVocabulary and share it freely.
type Vocabulary struct {
	sectors    []string
	sectorSet  map[string]struct{}
	synonyms   []Synonym
	synonymSet map[string]string
	qualifiers []string

	// space-removed forms, index-aligned with sectors and synonyms
	compactSectors  []string
	compactSynonyms []string
}

// DefaultVocabulary returns the built-in Indian market sectors and synonyms.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(defaultSectors, defaultSynonyms, defaultQualifiers)
}

// ExtendDefaultVocabulary returns the defaults plus extra entries. Extra entries
// are appended after the built-in ones so the built-in matching order is kept.
func ExtendDefaultVocabulary(extraSectors []string, extraSynonyms []Synonym) *Vocabulary {
	sectors := append(append([]string{}, defaultSectors...), extraSectors...)
	synonyms := append(append([]Synonym{}, defaultSynonyms...), extraSynonyms...)
	return NewVocabulary(sectors, synonyms, defaultQualifiers)
}

// NewVocabulary copies and canonicalizes the inputs. Empty and duplicate entries
// are dropped; the first occurrence wins.
func NewVocabulary(sectors []string, synonyms []Synonym, qualifiers []string) *Vocabulary {
	v := &Vocabulary{
		sectorSet:  make(map[string]struct{}, len(sectors)),
		synonymSet: make(map[string]string, len(synonyms)),
	}
	for _, raw := range sectors {
		sector := Normalize(raw)
		if sector == "" {
			continue
		}
		if _, ok := v.sectorSet[sector]; ok {
			continue
		}
		v.sectorSet[sector] = struct{}{}
		v.sectors = append(v.sectors, sector)
		v.compactSectors = append(v.compactSectors, removeSpaces(sector))
	}
	for _, syn := range synonyms {
		key := Normalize(syn.Key)
		if key == "" {
			continue
		}
		if _, ok := v.synonymSet[key]; ok {
			continue
		}
		target := Normalize(syn.Sector)
		v.synonymSet[key] = target
		v.synonyms = append(v.synonyms, Synonym{Key: key, Sector: target})
		v.compactSynonyms = append(v.compactSynonyms, removeSpaces(key))
	}
	for _, raw := range qualifiers {
		if q := Normalize(raw); q != "" {
			v.qualifiers = append(v.qualifiers, q)
		}
	}
	return v
}

// Sectors returns a copy of the canonical sector names in matching order.
func (v *Vocabulary) Sectors() []string {
	return append([]string(nil), v.sectors...)
}

// SortedSectors returns the canonical sector names sorted alphabetically.
func (v *Vocabulary) SortedSectors() []string {
	out := v.Sectors()
	sort.Strings(out)
	return out
}

// Synonyms returns a copy of the synonym table in matching order.
func (v *Vocabulary) Synonyms() []Synonym {
	return append([]Synonym(nil), v.synonyms...)
}

// Qualifiers returns a copy of the generic qualifier words.
func (v *Vocabulary) Qualifiers() []string {
	return append([]string(nil), v.qualifiers...)
}

// HasSector reports whether name is a canonical sector after normalization.
func (v *Vocabulary) HasSector(name string) bool {
	_, ok := v.sectorSet[Normalize(name)]
	return ok
}

// Len returns the number of canonical sectors.
func (v *Vocabulary) Len() int {
	return len(v.sectors)
}

func removeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
