package library

import "fmt"

const tracksPrefix = "library/tracks/"

// AudioKey returns the object key for a track's audio.
func AudioKey(genre, trackID string) string {
	return fmt.Sprintf("%s%s/%s.mp3", tracksPrefix, genre, trackID)
}

// MetadataKey returns the object key for a track's metadata sidecar.
func MetadataKey(genre, trackID string) string {
	return fmt.Sprintf("%s%s/%s.json", tracksPrefix, genre, trackID)
}

// GenrePrefix returns the listing prefix for one genre folder.
func GenrePrefix(genre string) string {
	return tracksPrefix + genre + "/"
}
