package detector

import "fmt"

// Slot is a text row on the display surface.
type Slot string

const (
	Top    Slot = "top"
	Bottom Slot = "bottom"
)

// Other returns the opposite slot.
func (s Slot) Other() Slot {
	if s == Top {
		return Bottom
	}
	return Top
}

// Direction is the language pair chosen for a fragment plus the slot that
// shows the source text and the slot that shows its translation.
type Direction struct {
	Detected Lang
	From     Lang
	To       Lang
	Source   Slot
	Target   Slot
}

// Config fixes the deployment's language pair and layout.
type Config struct {
	Primary     Lang
	Secondary   Lang
	DefaultFrom Lang
	DefaultTo   Lang
	SourceSlot  Slot
}

// Detector resolves translation directions for one deployment.
type Detector struct {
	cfg Config
}

func New(cfg Config) (*Detector, error) {
	if !cfg.Primary.Known() || !cfg.Secondary.Known() {
		return nil, fmt.Errorf("unsupported language pair %s/%s", cfg.Primary, cfg.Secondary)
	}
	if cfg.Primary == cfg.Secondary {
		return nil, fmt.Errorf("primary and secondary language must differ, both are %s", cfg.Primary)
	}
	if cfg.DefaultFrom == "" {
		cfg.DefaultFrom = cfg.Primary
	}
	if cfg.DefaultTo == "" {
		cfg.DefaultTo = cfg.Secondary
	}
	if cfg.SourceSlot != Bottom {
		cfg.SourceSlot = Top
	}
	return &Detector{cfg: cfg}, nil
}

// Detect classifies text; see the package-level Detect.
func (d *Detector) Detect(text string) Lang {
	return Detect(text)
}

// ResolveDirection picks the language pair for text. Primary-language text is
// translated to the secondary language and vice versa; anything else falls
// back to the configured default direction.
func (d *Detector) ResolveDirection(text string) Direction {
	detected := Detect(text)
	dir := Direction{
		Detected: detected,
		Source:   d.cfg.SourceSlot,
		Target:   d.cfg.SourceSlot.Other(),
	}
	switch detected {
	case d.cfg.Primary:
		dir.From, dir.To = d.cfg.Primary, d.cfg.Secondary
	case d.cfg.Secondary:
		dir.From, dir.To = d.cfg.Secondary, d.cfg.Primary
	default:
		dir.From, dir.To = d.cfg.DefaultFrom, d.cfg.DefaultTo
	}
	return dir
}

// PairLang classifies text and keeps the result only when it is one of the
// deployment's two languages.
func (d *Detector) PairLang(text string) (Lang, bool) {
	l := Detect(text)
	if l == d.cfg.Primary || l == d.cfg.Secondary {
		return l, true
	}
	return "", false
}
