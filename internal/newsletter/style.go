package newsletter

import (
	"fmt"
	"strconv"
	"strings"
)

// Style is an open record of presentational attributes. Missing keys fall
// back to renderer defaults.
type Style map[string]string

const (
	StyleHeight               = "height"
	StylePadding              = "padding"
	StylePaddingTop           = "paddingTop"
	StylePaddingBottom        = "paddingBottom"
	StylePaddingLeft          = "paddingLeft"
	StylePaddingRight         = "paddingRight"
	StyleMargin               = "margin"
	StyleMarginTop            = "marginTop"
	StyleMarginBottom         = "marginBottom"
	StyleColor                = "color"
	StyleBackgroundColor      = "backgroundColor"
	StyleHoverBackgroundColor = "hoverBackgroundColor"
	StyleHoverScale           = "hoverScale"
	StyleTextAlign            = "textAlign"
	StyleFontSize             = "fontSize"
	StyleFontWeight           = "fontWeight"
	StyleFontFamily           = "fontFamily"
	StyleLineHeight           = "lineHeight"
	StyleLetterSpacing        = "letterSpacing"
	StyleBorderRadius         = "borderRadius"
	StyleBorderWidth          = "borderWidth"
	StyleBorderStyle          = "borderStyle"
	StyleBorderColor          = "borderColor"
)

func (s Style) Clone() Style {
	out := make(Style, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}

// Merge returns a new style with patch applied key by key. An empty value in
// the patch removes the key.
func (s Style) Merge(patch Style) Style {
	out := s.Clone()
	for key, value := range patch {
		if value == "" {
			delete(out, key)
			continue
		}
		out[key] = value
	}
	return out
}

// darken scales each channel of a #RRGGBB colour towards black. Colours in
// any other notation are returned unchanged.
func darken(hex string, amount float64) string {
	value := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(value) == 3 {
		value = string([]byte{value[0], value[0], value[1], value[1], value[2], value[2]})
	}
	if len(value) != 6 {
		return hex
	}
	rgb, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return hex
	}
	channel := func(shift uint) uint64 {
		c := float64((rgb >> shift) & 0xFF)
		return uint64(c * (1 - amount))
	}
	return fmt.Sprintf("#%02X%02X%02X", channel(16), channel(8), channel(0))
}

// HoverColor is the hover background derived from a theme's primary colour.
func HoverColor(primary string) string {
	return darken(primary, 0.2)
}
