package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>]+`)

// ReplaceURLs rewrites every URL in content with fn, leaving other text as is.
func ReplaceURLs(content string, fn func(string) string) string {
	return urlRegex.ReplaceAllStringFunc(content, fn)
}

// SplitHost parses raw and returns it with a normalized host: lower case,
// IDNA ASCII form, without a leading "www.".
func SplitHost(raw string) (*url.URL, string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.ToASCII(host); err == nil {
		host = asciiHost
	}
	return parsed, strings.TrimPrefix(host, "www."), nil
}

func ContainsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
