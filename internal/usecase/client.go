package usecase

import "strings"

// ParseClient derives a coarse browser/OS/device fingerprint from a
// User-Agent string. It is informational only; unknown agents come back
// as "unknown".
func ParseClient(userAgent string) (browser, os, device string) {
	ua := strings.ToLower(userAgent)
	browser, os, device = "unknown", "unknown", "desktop"

	switch {
	case strings.Contains(ua, "edg/"):
		browser = "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		browser = "opera"
	case strings.Contains(ua, "chrome/"):
		browser = "chrome"
	case strings.Contains(ua, "firefox/"):
		browser = "firefox"
	case strings.Contains(ua, "safari/"):
		browser = "safari"
	case strings.Contains(ua, "curl/"):
		browser = "curl"
	}

	switch {
	case strings.Contains(ua, "android"):
		os = "android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "ios"
	case strings.Contains(ua, "windows"):
		os = "windows"
	case strings.Contains(ua, "mac os"):
		os = "macos"
	case strings.Contains(ua, "linux"):
		os = "linux"
	}

	if strings.Contains(ua, "mobile") || os == "android" || os == "ios" {
		device = "mobile"
	}
	if userAgent == "" {
		return "unknown", "unknown", "unknown"
	}
	return browser, os, device
}
