package printing

import (
	"strconv"
	"strings"

	"github.com/printdesk/backend/internal/domain/printing"
)

// Renderer command-line flags
const (
	flagPrintTo        = "-print-to"
	flagPrintToDefault = "-print-to-default"
	flagSilent         = "-silent"
	flagPrintSettings  = "-print-settings"
)

// SumatraEncoder encodes print options as SumatraPDF arguments
type SumatraEncoder struct{}

// Encode implements printing.OptionEncoder
func (SumatraEncoder) Encode(opts *printing.PrintOptions) []string {
	return EncodeArgs(opts)
}

// EncodeArgs serializes options into renderer arguments.
//
// The target printer and the silent flag are always present. Settings are
// joined into a single -print-settings value in the fixed order pages,
// monochrome, side, paper size, copies, and the flag is omitted entirely
// when no setting produces a token.
func EncodeArgs(opts *printing.PrintOptions) []string {
	if opts == nil {
		return []string{flagPrintToDefault, flagSilent}
	}

	args := make([]string, 0, 5)
	if opts.Printer != nil {
		args = append(args, flagPrintTo, *opts.Printer)
	} else {
		args = append(args, flagPrintToDefault)
	}
	args = append(args, flagSilent)

	if settings := encodeSettings(opts); len(settings) > 0 {
		args = append(args, flagPrintSettings, strings.Join(settings, ","))
	}
	return args
}

func encodeSettings(opts *printing.PrintOptions) []string {
	var settings []string
	if opts.Pages != nil {
		settings = append(settings, strings.ReplaceAll(*opts.Pages, " ", ""))
	}
	// monochrome is a presence flag
	if opts.Monochrome != nil && *opts.Monochrome {
		settings = append(settings, "monochrome")
	}
	if opts.Side != nil {
		settings = append(settings, opts.Side.String())
	}
	if opts.PaperSize != nil {
		settings = append(settings, "paper="+*opts.PaperSize)
	}
	if opts.Copies != nil {
		settings = append(settings, strconv.Itoa(*opts.Copies)+"x")
	}
	return settings
}

// Ensure SumatraEncoder implements OptionEncoder
var _ printing.OptionEncoder = SumatraEncoder{}
