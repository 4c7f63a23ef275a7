package printing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestSide_IsValid(t *testing.T) {
	tests := []struct {
		side     Side
		expected bool
	}{
		{SideSimplex, true},
		{SideDuplex, true},
		{Side(""), false},
		{Side("duplexlong"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.side), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.side.IsValid())
		})
	}
	assert.Len(t, AllSides(), 2)
}

func TestPrintOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		opts   *PrintOptions
		target error
	}{
		{"nil options", nil, nil},
		{"empty options", &PrintOptions{}, nil},
		{"full options", &PrintOptions{
			Printer:    ptr("Office"),
			Pages:      ptr("1-3"),
			Monochrome: ptr(true),
			Side:       ptr(SideDuplex),
			PaperSize:  ptr("A4"),
			Copies:     ptr(2),
		}, nil},
		{"present but empty pages", &PrintOptions{Pages: ptr("")}, ErrInvalidRange},
		{"unknown side", &PrintOptions{Side: ptr(Side("both"))}, ErrInvalidOptions},
		{"zero copies", &PrintOptions{Copies: ptr(0)}, ErrInvalidOptions},
		{"blank printer", &PrintOptions{Printer: ptr("  ")}, ErrInvalidOptions},
		{"paper size with separator", &PrintOptions{PaperSize: ptr("A4,monochrome")}, ErrInvalidOptions},
		{"empty paper size", &PrintOptions{PaperSize: ptr("")}, ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.target == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestPrintOptions_EffectiveSide(t *testing.T) {
	var nilOpts *PrintOptions
	assert.Equal(t, SideSimplex, nilOpts.EffectiveSide())
	assert.Equal(t, SideSimplex, (&PrintOptions{}).EffectiveSide())
	assert.Equal(t, SideDuplex, (&PrintOptions{Side: ptr(SideDuplex)}).EffectiveSide())
}

func TestPrintOptions_WithoutPages(t *testing.T) {
	opts := &PrintOptions{Pages: ptr("1-2"), Copies: ptr(3), Side: ptr(SideDuplex)}

	stripped := opts.WithoutPages()

	assert.Nil(t, stripped.Pages)
	assert.Equal(t, 3, *stripped.Copies)
	assert.Equal(t, "1-2", *opts.Pages, "original options must not be modified")

	*stripped.Copies = 9
	assert.Equal(t, 3, *opts.Copies, "copy must not share pointers")

	var nilOpts *PrintOptions
	assert.Nil(t, nilOpts.WithoutPages())
}

func TestPrintOptions_HasSettings(t *testing.T) {
	var nilOpts *PrintOptions
	assert.False(t, nilOpts.HasSettings())
	assert.False(t, (&PrintOptions{Printer: ptr("Office")}).HasSettings())
	assert.True(t, (&PrintOptions{Monochrome: ptr(false)}).HasSettings())
}
