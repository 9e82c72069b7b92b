package gamedata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// ParseHexColor converts a status colour string to a tcell.Color.
// Accepts "#RRGGBB", "RRGGBB", the "#RGB" shorthand, or a W3C colour name.
func ParseHexColor(hex string) (tcell.Color, error) {
	if hex == "" {
		return tcell.ColorDefault, fmt.Errorf("empty color")
	}
	if !strings.HasPrefix(hex, "#") {
		if c, ok := tcell.ColorNames[strings.ToLower(hex)]; ok {
			return c, nil
		}
	}
	hex = strings.TrimPrefix(hex, "#")

	// Expand #RGB to #RRGGBB
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color length: %s", hex)
	}

	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color %s: %w", hex, err)
	}

	return tcell.NewHexColor(int32(rgb)), nil
}

// MustParseHexColor converts a colour string to tcell.Color, panicking on error.
func MustParseHexColor(hex string) tcell.Color {
	color, err := ParseHexColor(hex)
	if err != nil {
		panic(err)
	}
	return color
}
