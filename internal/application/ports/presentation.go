package ports

// ThemeMarker is the document-level dark mode marker.
type ThemeMarker interface {
	SetDark(dark bool)
}

// Announcer publishes screen reader announcements to a polite live region.
type Announcer interface {
	Announce(text string)
}
