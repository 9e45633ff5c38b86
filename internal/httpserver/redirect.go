package httpserver

import (
	"net/url"
	"strings"
)

// redirectPrefixes are the path trees a login may send the user back into.
var redirectPrefixes = []string{"/vehicles", "/drivers", "/account"}

// ParseRedirectURL returns target when it is a safe local path and "/"
// otherwise. Absolute and protocol-relative URLs never pass.
func ParseRedirectURL(target string) string {
	const fallback = "/"

	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return fallback
	}
	if strings.ContainsAny(target, "\\") {
		return fallback
	}
	for _, r := range target {
		if r < 0x20 || r == 0x7f {
			return fallback
		}
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	if u.Path == "/" {
		return target
	}
	for _, p := range redirectPrefixes {
		if u.Path == p || strings.HasPrefix(u.Path, p+"/") {
			return target
		}
	}
	return fallback
}
