package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalIdentity(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		want   string
	}{
		{
			name:   "simple",
			method: "GET",
			url:    "https://app.example.com/page",
			want:   "GET|https://app.example.com/page",
		},
		{
			name:   "host lowercased",
			method: "get",
			url:    "HTTPS://App.Example.COM/page",
			want:   "GET|https://app.example.com/page",
		},
		{
			name:   "default https port stripped",
			method: "GET",
			url:    "https://app.example.com:443/page",
			want:   "GET|https://app.example.com/page",
		},
		{
			name:   "default http port stripped",
			method: "GET",
			url:    "http://app.example.com:80/page",
			want:   "GET|http://app.example.com/page",
		},
		{
			name:   "non-default port kept",
			method: "GET",
			url:    "https://app.example.com:8443/page",
			want:   "GET|https://app.example.com:8443/page",
		},
		{
			name:   "query sorted",
			method: "GET",
			url:    "https://app.example.com/search?z=1&a=2",
			want:   "GET|https://app.example.com/search?a=2&z=1",
		},
		{
			name:   "fragment dropped",
			method: "GET",
			url:    "https://app.example.com/page#section",
			want:   "GET|https://app.example.com/page",
		},
		{
			name:   "empty path becomes root",
			method: "GET",
			url:    "https://app.example.com",
			want:   "GET|https://app.example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalIdentity(tt.method, tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalIdentity_EquivalentRequestsAgree(t *testing.T) {
	a, err := CanonicalIdentity("GET", "https://App.Example.com:443/list?b=2&a=1#frag")
	require.NoError(t, err)
	b, err := CanonicalIdentity("get", "https://app.example.com/list?a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRequestCacheKey(t *testing.T) {
	key1, err := RequestCacheKey("GET", "https://app.example.com/page")
	require.NoError(t, err)
	key2, err := RequestCacheKey("GET", "https://APP.example.com/page")
	require.NoError(t, err)
	key3, err := RequestCacheKey("POST", "https://app.example.com/page")
	require.NoError(t, err)

	// sha256 hex key
	assert.Len(t, key1, 64)
	assert.Equal(t, key1, key2)

	// Method is part of the identity
	assert.NotEqual(t, key1, key3)
}
