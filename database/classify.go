package database

import "strings"

// Patterns of transient connectivity failures. Supabase-style direct hosts
// publish AAAA records only, so IPv6-only environments surface the literal
// address or an unreachable/no-route error when the dual-stack race loses.
var classifiedPatterns = []string{
	"network is unreachable",
	"no route to host",
	"connection refused",
	"timeout",
	"timed out",
}

// IPv6 literal prefixes seen in failed dial messages.
var ipv6Prefixes = []string{
	"2406:",
	"2001:",
	"2600:",
	"2a00:",
	"2a05:",
	"fc00:",
	"fe80:",
	"::",
}

// Classified reports whether err matches a known transient-connectivity
// pattern and is therefore eligible for the retry loop. Anything else
// propagates as a FatalConnectionError.
func Classified(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range classifiedPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	for _, p := range ipv6Prefixes {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
