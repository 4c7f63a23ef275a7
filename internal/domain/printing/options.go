package printing

import "strings"

// PrintOptions is the structured print request. Every field is optional and
// a nil pointer means "not given", which is distinct from a zero value.
type PrintOptions struct {
	Printer    *string `json:"printer,omitempty"`
	Pages      *string `json:"pages,omitempty"`
	Monochrome *bool   `json:"monochrome,omitempty"`
	Side       *Side   `json:"side,omitempty"`
	PaperSize  *string `json:"paperSize,omitempty"`
	Copies     *int    `json:"copies,omitempty"`
}

// Validate checks the options record. A nil record is valid.
func (o *PrintOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.Printer != nil && strings.TrimSpace(*o.Printer) == "" {
		return NewInvalidOptionsError("printer cannot be empty when given")
	}
	if o.Pages != nil && strings.TrimSpace(*o.Pages) == "" {
		return NewInvalidRangeError(*o.Pages)
	}
	if o.Side != nil && !o.Side.IsValid() {
		return NewInvalidOptionsError("invalid side: " + string(*o.Side))
	}
	if o.PaperSize != nil {
		size := strings.TrimSpace(*o.PaperSize)
		if size == "" {
			return NewInvalidOptionsError("paper size cannot be empty when given")
		}
		if strings.ContainsAny(size, ",=") {
			return NewInvalidOptionsError("invalid paper size: " + size)
		}
	}
	if o.Copies != nil && *o.Copies < 1 {
		return NewInvalidOptionsError("copies must be a positive integer")
	}
	return nil
}

// EffectiveSide returns the requested side, or simplex when none was given
func (o *PrintOptions) EffectiveSide() Side {
	if o == nil || o.Side == nil {
		return SideSimplex
	}
	return *o.Side
}

// PagesExpression returns the page-range expression, or "" for all pages
func (o *PrintOptions) PagesExpression() string {
	if o == nil || o.Pages == nil {
		return ""
	}
	return *o.Pages
}

// PrinterName returns the explicitly requested printer, or ""
func (o *PrintOptions) PrinterName() string {
	if o == nil || o.Printer == nil {
		return ""
	}
	return *o.Printer
}

// HasSettings reports whether any printer setting is present
func (o *PrintOptions) HasSettings() bool {
	if o == nil {
		return false
	}
	return o.Pages != nil || o.Monochrome != nil || o.Side != nil || o.PaperSize != nil || o.Copies != nil
}

// Clone returns a shallow copy whose pointer fields are detached from o
func (o *PrintOptions) Clone() *PrintOptions {
	if o == nil {
		return nil
	}
	c := &PrintOptions{}
	if o.Printer != nil {
		v := *o.Printer
		c.Printer = &v
	}
	if o.Pages != nil {
		v := *o.Pages
		c.Pages = &v
	}
	if o.Monochrome != nil {
		v := *o.Monochrome
		c.Monochrome = &v
	}
	if o.Side != nil {
		v := *o.Side
		c.Side = &v
	}
	if o.PaperSize != nil {
		v := *o.PaperSize
		c.PaperSize = &v
	}
	if o.Copies != nil {
		v := *o.Copies
		c.Copies = &v
	}
	return c
}

// WithoutPages returns a copy with the page-range expression removed.
// A subset document already carries the selection, so passing the range
// again would restrict it twice.
func (o *PrintOptions) WithoutPages() *PrintOptions {
	if o == nil {
		return nil
	}
	c := o.Clone()
	c.Pages = nil
	return c
}
