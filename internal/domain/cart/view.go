package cart

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money is a monetary amount in minor units together with its display form.
type Money struct {
	Raw       int64
	Formatted string
}

// View is the read-only model derived from a Cart for the rendering layer.
type View struct {
	Cart    Cart
	IsEmpty bool
	Count   int
	Total   Money
}

// NewView derives the view model for c.
func NewView(c Cart, f *Formatter) View {
	raw := c.Total()
	return View{
		Cart:    c.Clone(),
		IsEmpty: c.IsEmpty(),
		Count:   c.Count(),
		Total: Money{
			Raw:       raw,
			Formatted: f.Format(raw),
		},
	}
}

// FormatterConfig describes how amounts are displayed.
type FormatterConfig struct {
	// Locale is a BCP 47 tag selecting digit grouping and decimal separators.
	Locale string
	Symbol string
	// MinorUnits is the number of minor units per major unit (2 for cents).
	MinorUnits int
	// SymbolAfter places the symbol after the amount, as in "1.234,50 €".
	SymbolAfter bool
}

// Formatter renders minor-unit amounts as locale-formatted currency strings.
// Digits come from the exact decimal value; only separators are taken from
// the locale.
type Formatter struct {
	group       string
	point       string
	symbol      string
	symbolAfter bool
	minorUnits  int
}

// NewFormatter creates a Formatter from cfg.
func NewFormatter(cfg FormatterConfig) (*Formatter, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", cfg.Locale)
	}
	if cfg.MinorUnits < 0 {
		return nil, errors.Errorf("invalid minor units %d", cfg.MinorUnits)
	}
	group, point := separators(tag)
	return &Formatter{
		group:       group,
		point:       point,
		symbol:      cfg.Symbol,
		symbolAfter: cfg.SymbolAfter,
		minorUnits:  cfg.MinorUnits,
	}, nil
}

// DefaultFormatter formats US dollars for the en-US locale.
func DefaultFormatter() *Formatter {
	return &Formatter{
		group:      ",",
		point:      ".",
		symbol:     "$",
		minorUnits: 2,
	}
}

// separators extracts the grouping and decimal separators of tag by
// formatting a sample number. Locales with non-ASCII digits fall back to
// "," and ".".
func separators(tag language.Tag) (group, point string) {
	s := message.NewPrinter(tag).Sprint(number.Decimal(1234.5, number.Scale(1)))
	i := strings.Index(s, "234")
	if !strings.HasPrefix(s, "1") || !strings.HasSuffix(s, "5") || i < 1 || i+3 > len(s)-1 {
		return ",", "."
	}
	return s[1:i], s[i+3 : len(s)-1]
}

// Format renders raw minor units, e.g. 4498 as "$44.98".
func (f *Formatter) Format(raw int64) string {
	amount := decimal.New(raw, -int32(f.minorUnits))
	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(int32(f.minorUnits)), ".")

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	if !f.symbolAfter {
		b.WriteString(f.symbol)
	}
	for i := range len(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteByte(whole[i])
	}
	if frac != "" {
		b.WriteString(f.point)
		b.WriteString(frac)
	}
	if f.symbolAfter && f.symbol != "" {
		b.WriteByte(' ')
		b.WriteString(f.symbol)
	}
	return b.String()
}
