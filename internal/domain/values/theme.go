package values

import "fmt"

// Theme is the document-level colour scheme that follows the persona switch.
type Theme string

const (
	// ThemeLight is shown while the primary persona is active
	ThemeLight Theme = "light"
	// ThemeDark is shown while the secondary persona is active
	ThemeDark Theme = "dark"
)

// ThemeFor projects the switch flag onto a theme.
func ThemeFor(isSwitchOn bool) Theme {
	if isSwitchOn {
		return ThemeDark
	}
	return ThemeLight
}

// IsDark returns true for the dark theme
func (t Theme) IsDark() bool {
	return t == ThemeDark
}

// Validate returns an error if the theme value is invalid
func (t Theme) Validate() error {
	switch t {
	case ThemeLight, ThemeDark:
		return nil
	default:
		return fmt.Errorf("invalid theme: %s", t)
	}
}
