// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package media decides which inbound messages are voice notes and runs the
// download, transcribe and relay pipeline for them.
package media

import "strings"

// Message kinds that may carry speech.
const (
	KindVoiceNote = "ptt"
	KindAudio     = "audio"
)

// AudioMimeTypes are the encodings accepted regardless of kind.
var AudioMimeTypes = []string{"audio/ogg", "audio/mpeg", "audio/mp4"}

// IsVoiceNote reports whether a message of the given kind and payload mime
// type should be transcribed.
func IsVoiceNote(kind, mimeType string) bool {
	if kind == KindVoiceNote {
		return true
	}
	for _, m := range AudioMimeTypes {
		if strings.Contains(mimeType, m) {
			return true
		}
	}
	return false
}

// Downloadable reports whether a kind is worth downloading at all.
func Downloadable(kind string) bool {
	return kind == KindVoiceNote || kind == KindAudio
}

// Extension maps an audio mime type to a file extension.
func Extension(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "audio/ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "audio/mpeg"):
		return ".mp3"
	case strings.Contains(mimeType, "audio/mp4"):
		return ".m4a"
	case strings.Contains(mimeType, "audio/wav"), strings.Contains(mimeType, "audio/x-wav"):
		return ".wav"
	case strings.Contains(mimeType, "audio/webm"):
		return ".webm"
	default:
		return ".ogg"
	}
}
