package videogen

import "strings"

// AspectRatio maps a requested frame size to a ratio accepted upstream.
// Unrecognised values fall back to 16:9.
func AspectRatio(frameSize string) string {
	switch strings.TrimSpace(frameSize) {
	case "720x1280":
		return "9:16"
	case "1080x1080":
		return "1:1"
	case "4:3":
		return "4:3"
	case "3:4":
		return "3:4"
	case "21:9":
		return "21:9"
	default:
		return "16:9"
	}
}

// parseDurationSeconds reads the leading integer of raw, "4s" yields 4.
// Empty, zero and unparsable values yield the default of five seconds.
func parseDurationSeconds(raw string) int {
	raw = strings.TrimSpace(raw)
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > 3600 {
			break
		}
	}
	if n <= 0 {
		return 5
	}
	return n
}
