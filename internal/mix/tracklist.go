package mix

import (
	"fmt"
	"strings"
)

// FormatTimestamp renders milliseconds as MM:SS, or H:MM:SS past the
// hour mark.
func FormatTimestamp(ms int) string {
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// RenderTracklist produces the human-readable tracklist that ships with
// a mix.
func RenderTracklist(result *Result) string {
	var b strings.Builder

	b.WriteString("TRACKLIST\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	for _, e := range result.Entries {
		fmt.Fprintf(&b, "%s - %s\n", FormatTimestamp(e.StartMs), e.Title)
	}

	b.WriteString("\n" + strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Total tracks: %d\n", len(result.Entries))
	fmt.Fprintf(&b, "Total duration: %s\n", FormatTimestamp(result.TotalDurationMs))

	return b.String()
}
