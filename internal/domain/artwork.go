package domain

import (
	"fmt"
	"slices"
)

// ArtStyles lists the styles offered by the card forge; the first is the default.
var ArtStyles = []string{
	"Fantasy", "Art Nouveau", "Sci-Fi", "Steampunk", "Gothic",
	"Surrealist", "Vintage", "Minimalist", "Abstract", "Impressionist",
}

// ColorPalettes lists the palettes offered by the card forge; the first is the default.
var ColorPalettes = []string{
	"Vibrant", "Muted", "Dark", "Pastel", "Monochromatic", "Earthy Tones",
}

// IsArtStyle reports whether s is a known art style.
func IsArtStyle(s string) bool { return slices.Contains(ArtStyles, s) }

// IsColorPalette reports whether s is a known colour palette.
func IsColorPalette(s string) bool { return slices.Contains(ColorPalettes, s) }

// ComposeCardPrompt builds the image-generation prompt for a new card.
func ComposeCardPrompt(name, description, style, palette string) string {
	return fmt.Sprintf(
		`A tarot card named "%s". The art style is %s. The card depicts: %s. The color palette is %s. high detail, mystical, elegant, fantasy art.`,
		name, style, description, palette,
	)
}
