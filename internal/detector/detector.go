// Package detector classifies short text fragments by the share of characters
// that fall into each supported script, and derives the translation direction
// and screen layout for a fragment from that classification.
package detector

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Lang is a deployment language code as understood by the remote translation
// API ("cn" rather than "zh" for Chinese).
type Lang string

const (
	Unknown  Lang = "unknown"
	Chinese  Lang = "cn"
	English  Lang = "en"
	Japanese Lang = "ja"
	Korean   Lang = "ko"
	Russian  Lang = "ru"
	Arabic   Lang = "ar"
	Thai     Lang = "th"
	Greek    Lang = "el"
	Hebrew   Lang = "he"
	Hindi    Lang = "hi"
)

// Chinese gets a lower bar because mixed Chinese/Latin fragments are common
// and Han characters are the stronger signal.
const (
	chineseThreshold = 0.30
	defaultThreshold = 0.50
)

type script struct {
	lang      Lang
	name      string
	tag       language.Tag
	table     *unicode.RangeTable
	threshold float64
}

// scripts is evaluated in order; on equal ratios the earlier entry wins.
var scripts = []script{
	{Chinese, "Chinese", language.SimplifiedChinese, rangeTable(0x4E00, 0x9FFF), chineseThreshold},
	{English, "English", language.English, &unicode.RangeTable{R16: []unicode.Range16{
		{Lo: 'A', Hi: 'Z', Stride: 1},
		{Lo: 'a', Hi: 'z', Stride: 1},
	}}, defaultThreshold},
	// Kana only; kanji would collide with Chinese.
	{Japanese, "Japanese", language.Japanese, rangeTable(0x3040, 0x30FF), defaultThreshold},
	{Korean, "Korean", language.Korean, rangeTable(0xAC00, 0xD7AF), defaultThreshold},
	{Russian, "Russian", language.Russian, rangeTable(0x0400, 0x04FF), defaultThreshold},
	{Arabic, "Arabic", language.Arabic, rangeTable(0x0600, 0x06FF), defaultThreshold},
	{Thai, "Thai", language.Thai, rangeTable(0x0E00, 0x0E7F), defaultThreshold},
	{Greek, "Greek", language.Greek, rangeTable(0x0370, 0x03FF), defaultThreshold},
	{Hebrew, "Hebrew", language.Hebrew, rangeTable(0x0590, 0x05FF), defaultThreshold},
	{Hindi, "Hindi", language.Hindi, rangeTable(0x0900, 0x097F), defaultThreshold},
}

func rangeTable(lo, hi uint16) *unicode.RangeTable {
	return &unicode.RangeTable{R16: []unicode.Range16{{Lo: lo, Hi: hi, Stride: 1}}}
}

// Share is the count and ratio of one language's characters in a cleaned text.
type Share struct {
	Lang  Lang
	Count int
	Ratio float64
}

// Detect returns the language whose characters make up the largest share of
// text among the languages that clear their own threshold, or Unknown.
func Detect(text string) Lang {
	best := Unknown
	bestRatio := 0.0
	for i, share := range composition(text) {
		if share.Ratio < scripts[i].threshold {
			continue
		}
		if share.Ratio > bestRatio {
			best = share.Lang
			bestRatio = share.Ratio
		}
	}
	return best
}

// Composition reports, in table order, every supported language that has at
// least one character in text.
func Composition(text string) []Share {
	var out []Share
	for _, share := range composition(text) {
		if share.Count > 0 {
			out = append(out, share)
		}
	}
	return out
}

func composition(text string) []Share {
	cleaned := clean(text)
	if len(cleaned) == 0 {
		return nil
	}

	shares := make([]Share, len(scripts))
	for i, s := range scripts {
		shares[i].Lang = s.lang
	}
	for _, r := range cleaned {
		for i, s := range scripts {
			if unicode.Is(s.table, r) {
				shares[i].Count++
			}
		}
	}
	total := float64(len(cleaned))
	for i := range shares {
		shares[i].Ratio = float64(shares[i].Count) / total
	}
	return shares
}

// clean keeps word characters only: letters, numbers and underscore.
func clean(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			out = append(out, r)
		}
	}
	return out
}

// Supported lists the detectable languages in evaluation order.
func Supported() []Lang {
	out := make([]Lang, len(scripts))
	for i, s := range scripts {
		out[i] = s.lang
	}
	return out
}

// Parse accepts a deployment code or a BCP 47 tag ("zh", "zh-CN", "EN") and
// returns the matching Lang.
func Parse(s string) (Lang, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Unknown, false
	}
	for _, sc := range scripts {
		if s == string(sc.lang) {
			return sc.lang, true
		}
	}
	tag, err := language.Parse(s)
	if err != nil {
		return Unknown, false
	}
	base, _ := tag.Base()
	for _, sc := range scripts {
		if b, _ := sc.tag.Base(); b == base {
			return sc.lang, true
		}
	}
	return Unknown, false
}

// Name returns a human readable language name.
func (l Lang) Name() string {
	if s, ok := lookup(l); ok {
		return s.name
	}
	return "Unknown (" + string(l) + ")"
}

// Tag returns the BCP 47 tag used by services that do not speak the
// deployment codes.
func (l Lang) Tag() language.Tag {
	if s, ok := lookup(l); ok {
		return s.tag
	}
	return language.Und
}

// ISO returns the ISO 639-1 code ("zh" for Chinese).
func (l Lang) ISO() string {
	base, _ := l.Tag().Base()
	return base.String()
}

// Known reports whether l is one of the supported languages.
func (l Lang) Known() bool {
	_, ok := lookup(l)
	return ok
}

func lookup(l Lang) (script, bool) {
	for _, s := range scripts {
		if s.lang == l {
			return s, true
		}
	}
	return script{}, false
}
