// Package cli holds terminal helpers for the fsmctl binary: boxed banners
// and interactive prompts.
package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/amp-labs/lifecycle/config"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

// Alignment of banner lines.
const (
	AlignLeft = iota
	AlignCenter
	AlignRight
)

const (
	bannerPadding  = 2
	dividerPadding = 2

	// DefaultTerminalWidth is used when the terminal cannot be measured.
	DefaultTerminalWidth = 80
)

type bannerConfig struct {
	Suppress bool `env:"FSM_NO_BANNER" envDefault:"false"`
}

// suppressBanner reports whether FSM_NO_BANNER asks for plain output.
var suppressBanner = sync.OnceValue(func() bool { //nolint:gochecknoglobals
	var cfg bannerConfig
	if err := config.Load(&cfg); err != nil {
		return false
	}

	return cfg.Suppress
})

func terminalWidth() int {
	_, w, err := TerminalDimensions()
	if err != nil || w == 0 {
		return DefaultTerminalWidth
	}

	return int(w) //nolint:gosec // Terminal width is bounded by screen size
}

// DividerAutoWidth returns a divider as wide as the terminal.
func DividerAutoWidth() string {
	return Divider(terminalWidth())
}

// BannerAutoWidth boxes s to the terminal width, or returns it unboxed when
// banners are suppressed.
func BannerAutoWidth(s string, alignment int) string {
	if suppressBanner() {
		return s + "\n"
	}

	return Banner(s, terminalWidth(), alignment)
}

// Divider returns a horizontal rule width runes wide, ending in a newline.
func Divider(width int) string {
	if width < dividerPadding {
		return ""
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-dividerPadding) + dividerRight + "\n"
}

// Banner draws a box width runes wide around the lines of s. Lines that do
// not fit are truncated with an ellipsis. It returns "" for an unknown
// alignment or a width too small to draw.
func Banner(s string, width int, alignment int) string {
	inner := width - bannerPadding
	if inner <= 0 || alignment < AlignLeft || alignment > AlignRight {
		return ""
	}

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	var sb strings.Builder

	sb.WriteString(boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight + "\n")

	for _, line := range lines {
		sb.WriteString(boxSide + pad(line, inner, alignment) + boxSide + "\n")
	}

	sb.WriteString(boxBottomLeft + strings.Repeat(boxBottom, inner) + boxBottomRight + "\n")

	return sb.String()
}

func graphicLen(s string) int {
	n := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			n++
		}
	}

	return n
}

// truncate keeps the first n-1 graphic runes of s and appends an ellipsis.
func truncate(s string, n int) string {
	var sb strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}

		if count >= n {
			break
		}

		sb.WriteRune(r)
	}

	return sb.String() + ellipsis
}

func pad(text string, width, alignment int) string {
	if graphicLen(text) > width {
		text = truncate(text, width)
	}

	diff := width - graphicLen(text)

	switch alignment {
	case AlignCenter:
		left := diff / 2 //nolint:mnd

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}

// TerminalDimensions returns (rows, cols, err) of the controlling terminal.
func TerminalDimensions() (uint, uint, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return 0, 0, err
	}

	defer tty.Close() //nolint:errcheck

	// Outputs: "rows columns"
	cmd := exec.Command("stty", "size")
	cmd.Stdin = tty

	out, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	return parseSize(string(out))
}

func parseSize(input string) (uint, uint, error) {
	parts := strings.Fields(input)
	if len(parts) != 2 { //nolint:mnd
		return 0, 0, fmt.Errorf("unexpected stty output %q", input) //nolint:err113
	}

	rows, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, err
	}

	cols, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, err
	}

	return uint(rows), uint(cols), nil
}
