package render

import "image/color"

// ColourTable resolves an S-52 colour token (e.g. "DEPVS", "CHBLK") to an
// RGBA value for one colour scheme. The S-52 colour-differentiation (CDI)
// tables themselves are external data (loaded the same non-core way LUPs
// are, per spec.md §4.4's EXPANSION note) — this type is just the resolved
// lookup surface the rasterizer consumes.
type ColourTable map[string]color.RGBA

// Resolve returns the RGBA for token, or opaque black if the token is
// unknown — a missing colour token should never abort a render; blackness
// makes the gap visible instead.
func (t ColourTable) Resolve(token string) color.RGBA {
	if c, ok := t[token]; ok {
		return c
	}
	return color.RGBA{A: 255}
}

// ColourSchemes maps a scheme name (RenderSettings.ColourScheme) to its
// resolved ColourTable.
type ColourSchemes map[string]ColourTable

// DefaultColourSchemes seeds the three standard S-52 presentation library
// schemes (DAY/DUSK/NIGHT) with the core chart-symbology tokens this
// renderer's rule set actually references. A production deployment loads
// the full CDI table from the external S-52 library loader; these are the
// fallback values exercised by tests and by any token the external loader
// doesn't override.
func DefaultColourSchemes() ColourSchemes {
	return ColourSchemes{
		"DAY": ColourTable{
			"DEPVS": color.RGBA{R: 170, G: 213, B: 255, A: 255}, // very shallow water
			"DEPMS": color.RGBA{R: 140, G: 186, B: 229, A: 255}, // medium shallow
			"DEPDW": color.RGBA{R: 255, G: 255, B: 255, A: 255}, // deep water
			"DEPCN": color.RGBA{R: 0, G: 0, B: 0, A: 255},       // depth contour line
			"DEPSC": color.RGBA{R: 90, G: 90, B: 90, A: 255},    // safety contour (emphasised)
			"CHBLK": color.RGBA{R: 0, G: 0, B: 0, A: 255},       // chart black
			"CHGRD": color.RGBA{R: 120, G: 120, B: 120, A: 255}, // chart grey/dashes
			"CHMGD": color.RGBA{R: 180, G: 130, B: 80, A: 255},  // magenta-ish danger
			"CSTLN": color.RGBA{R: 0, G: 0, B: 0, A: 255},       // coastline
			"LITRD": color.RGBA{R: 237, G: 28, B: 36, A: 255},   // light red sector
			"LITGN": color.RGBA{R: 0, G: 166, B: 81, A: 255},    // light green sector
			"LANDA": color.RGBA{R: 238, G: 220, B: 130, A: 255}, // land area
			"NODTA": color.RGBA{R: 255, G: 255, B: 255, A: 0},   // no data
		},
		"DUSK": ColourTable{
			"DEPVS": color.RGBA{R: 70, G: 90, B: 105, A: 255},
			"DEPMS": color.RGBA{R: 55, G: 72, B: 90, A: 255},
			"DEPDW": color.RGBA{R: 95, G: 100, B: 110, A: 255},
			"DEPCN": color.RGBA{R: 180, G: 180, B: 180, A: 255},
			"DEPSC": color.RGBA{R: 200, G: 200, B: 200, A: 255},
			"CHBLK": color.RGBA{R: 200, G: 200, B: 200, A: 255},
			"CHGRD": color.RGBA{R: 110, G: 110, B: 110, A: 255},
			"CHMGD": color.RGBA{R: 140, G: 95, B: 60, A: 255},
			"CSTLN": color.RGBA{R: 200, G: 200, B: 200, A: 255},
			"LITRD": color.RGBA{R: 180, G: 40, B: 40, A: 255},
			"LITGN": color.RGBA{R: 30, G: 120, B: 70, A: 255},
			"LANDA": color.RGBA{R: 95, G: 88, B: 60, A: 255},
			"NODTA": color.RGBA{R: 40, G: 40, B: 40, A: 0},
		},
		"NIGHT": ColourTable{
			"DEPVS": color.RGBA{R: 10, G: 15, B: 20, A: 255},
			"DEPMS": color.RGBA{R: 8, G: 12, B: 16, A: 255},
			"DEPDW": color.RGBA{R: 15, G: 18, B: 22, A: 255},
			"DEPCN": color.RGBA{R: 60, G: 60, B: 60, A: 255},
			"DEPSC": color.RGBA{R: 90, G: 90, B: 90, A: 255},
			"CHBLK": color.RGBA{R: 90, G: 90, B: 90, A: 255},
			"CHGRD": color.RGBA{R: 45, G: 45, B: 45, A: 255},
			"CHMGD": color.RGBA{R: 70, G: 45, B: 30, A: 255},
			"CSTLN": color.RGBA{R: 80, G: 80, B: 80, A: 255},
			"LITRD": color.RGBA{R: 100, G: 20, B: 20, A: 255},
			"LITGN": color.RGBA{R: 15, G: 60, B: 35, A: 255},
			"LANDA": color.RGBA{R: 35, G: 32, B: 22, A: 255},
			"NODTA": color.RGBA{R: 0, G: 0, B: 0, A: 0},
		},
	}
}

// Resolve returns scheme's ColourTable, falling back to DAY if the scheme
// name is unrecognised.
func (s ColourSchemes) Resolve(name string) ColourTable {
	if t, ok := s[name]; ok {
		return t
	}
	return s["DAY"]
}
