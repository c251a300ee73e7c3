// ABOUTME: Version information for audio-playout
// ABOUTME: Product identification shown in logs and the TUI
package version

import "fmt"

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name
	Product = "Audio Playout"

	// Manufacturer is the publisher
	Manufacturer = "SoundVision"
)

// Title is the short name shown in the TUI header
func Title() string {
	return fmt.Sprintf("%s %s", Product, Version)
}

// Banner identifies the build in the startup log line
func Banner() string {
	return fmt.Sprintf("%s %s by %s", Product, Version, Manufacturer)
}
