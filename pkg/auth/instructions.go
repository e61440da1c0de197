package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to copy the TikTok session cookies
// from a browser
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"TIKTOK COOKIE EXTRACTION GUIDE",
		rule,
		"",
		"Comments can be listed without a session, but TikTok answers logged-in",
		"sessions more reliably and blocks them later. To use one:",
		"",
		"1. Open https://www.tiktok.com in your browser and log in.",
		"2. Open Developer Tools (F12, or Cmd+Option+I on macOS).",
		"3. Chrome/Edge: Application > Cookies > https://www.tiktok.com",
		"   Firefox:     Storage > Cookies > https://www.tiktok.com",
		"4. Copy the values of these cookies:",
		"",
		"   sessionid   32 hex characters, required",
		"   msToken     long base64-like string, optional",
		"",
		"Copy only the value, without quotes or a trailing semicolon.",
		"Sessions expire; run 'tikscraper auth login' again when requests start",
		"failing with authentication errors.",
		"",
		"WARNING: the sessionid gives full access to the account. Prefer a",
		"secondary account and never share the value.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ShowQuickExtractGuide is the one-line reminder shown at the prompt
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 > Application/Storage > Cookies > tiktok.com: copy sessionid (and msToken). Type 'help' for details.")
}
