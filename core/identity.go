// Package core has core logic for caching, lifecycle, replay, and dispatch.
package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CanonicalIdentity normalizes a request into its cache identity string.
// Two requests that differ only in query order, host casing, default port,
// or fragment share one identity.
func CanonicalIdentity(method, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", rawURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)

	// Strip default ports
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	query := canonicalQuery(u.Query())

	identity := strings.ToUpper(method) + "|" + scheme + "://" + host + path
	if query != "" {
		identity += "?" + query
	}
	return identity, nil
}

// canonicalQuery re-encodes query parameters with sorted keys and sorted
// values per key.
func canonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

// CacheKey hashes a canonical identity into a fixed-width storage key.
func CacheKey(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// RequestCacheKey combines normalization and hashing for one request.
func RequestCacheKey(method, rawURL string) (string, error) {
	identity, err := CanonicalIdentity(method, rawURL)
	if err != nil {
		return "", err
	}
	return CacheKey(identity), nil
}
