package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerArt string

// RenderBanner returns the banner art centred for the current terminal.
// Replace banner.txt to change it.
func RenderBanner() string {
	return centerBlock(bannerArt, termWidth())
}

// centerBlock pads every line of art by the same amount so the block as
// a whole sits in the middle of width columns. Art wider than width is
// left-aligned.
func centerBlock(art string, width int) string {
	art = strings.TrimRight(art, "\n")
	if art == "" {
		return ""
	}
	lines := strings.Split(art, "\n")

	widest := 0
	for _, l := range lines {
		widest = max(widest, len(l))
	}
	pad := ""
	if width > widest {
		pad = strings.Repeat(" ", (width-widest)/2)
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(pad)
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// termWidth returns the terminal column count, or 80 when stdout is not
// a terminal.
func termWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
