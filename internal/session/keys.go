package session

import "fmt"

const sessionsPrefix = "sessions/"

// PlanKey is the stored plan for a session.
func PlanKey(sessionID string) string {
	return fmt.Sprintf("%s%s/plan.json", sessionsPrefix, sessionID)
}

// ManifestKey is the stored session manifest.
func ManifestKey(sessionID string) string {
	return fmt.Sprintf("%s%s/session.json", sessionsPrefix, sessionID)
}

// MixKey is the final rendered mix.
func MixKey(sessionID string) string {
	return fmt.Sprintf("%s%s/final_mix.mp3", sessionsPrefix, sessionID)
}

// TracklistKey is the human-readable tracklist.
func TracklistKey(sessionID string) string {
	return fmt.Sprintf("%s%s/tracklist.txt", sessionsPrefix, sessionID)
}

// VideoKey is the optional waveform video render.
func VideoKey(sessionID string) string {
	return fmt.Sprintf("%s%s/final_mix.mp4", sessionsPrefix, sessionID)
}
