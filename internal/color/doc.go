// Package color models sRGB colors as they appear in computed CSS styles.
//
// A Color is an immutable value with red, green, blue and alpha components in
// the range [0, 1]. It can be parsed from the textual notations browsers
// report for computed styles (hex, rgb(), rgba(), hsl(), named colors) and
// provides the WCAG relative luminance used by the contrast package.
//
// # Usage
//
//	c, err := color.Parse("rgba(118, 118, 118, 0.5)")
//	if err != nil {
//	    // errors.Is(err, color.ErrInvalidFormat) == true
//	}
//	l := c.Luminosity()
package color
