package server

import "regexp"

// Accepted source URL shapes, including the short-link redirect hosts.
var sourceURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?tiktok\.com/@[\w.-]+/video/\d+`),
	regexp.MustCompile(`^https?://(?:vm|vt)\.tiktok\.com/[\w.-]+`),
	regexp.MustCompile(`^https?://(?:www\.)?tiktok\.com/t/[\w.-]+`),
	regexp.MustCompile(`^https?://vm\.tiktok\.com/v/\d+\.html`),
}

func isValidSourceURL(url string) bool {
	for _, pattern := range sourceURLPatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	return false
}
