package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CutoutTheme is the dark editor theme.
type CutoutTheme struct{}

var _ fyne.Theme = (*CutoutTheme)(nil)

func (t *CutoutTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xFF}
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 0x25, G: 0x25, B: 0x26, A: 0xFF}
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0xFF} // accent blue
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0x80}
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x2D, G: 0x2D, B: 0x30, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *CutoutTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CutoutTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CutoutTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 8 // slim scrollbars
	default:
		return theme.DefaultTheme().Size(name)
	}
}
