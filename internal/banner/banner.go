package banner

import (
	"vuload/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
                 __                __
 _   ____  __   / /___  ____ _____/ /
| | / / / / /  / / __ \/ __ '/ __  /
| |/ / /_/ /  / / /_/ / /_/ / /_/ /
|___/\__,_/  /_/\____/\__,_/\__,_/   `

	return "\n" + style.Render(ascii) + "\n"
}
