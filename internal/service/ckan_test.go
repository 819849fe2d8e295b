package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCKANClient_PackageList(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, packageListPath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "result": ["a", "b", "c"]}`))
	}))
	defer srv.Close()

	c := NewCKANClient(srv.URL+"/", "key-123", srv.Client())
	assert.Equal(t, srv.URL, c.Address(), "trailing slash is trimmed")

	names, err := c.PackageList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, "key-123", gotAuth)
}

func TestCKANClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"server error", http.StatusInternalServerError, `oops`, "status 500"},
		{"invalid json", http.StatusOK, `not json`, "invalid response body"},
		{"action failure", http.StatusOK, `{"success": false, "error": {"message": "Access denied"}}`, "Access denied"},
		{"wrong result type", http.StatusOK, `{"success": true, "result": {"a": 1}}`, "invalid result"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewCKANClient(srv.URL, "", srv.Client()).PackageList(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstream)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestCKANClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	address := srv.URL
	srv.Close()

	_, err := NewCKANClient(address, "", nil).PackageList(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "package_list", upstream.Operation)
	assert.Zero(t, upstream.StatusCode)
}

func TestCKANClient_ForInstance(t *testing.T) {
	c := NewCKANClient("https://data.hdx.rwlabs.org", "k", nil)

	other, ok := c.ForInstance("https://demo.ckan.org/").(*CKANClient)
	require.True(t, ok)
	assert.Equal(t, "https://demo.ckan.org", other.Address())
	assert.Empty(t, other.apiKey, "the api key never leaves its instance")
	assert.Equal(t, "https://data.hdx.rwlabs.org", c.Address(), "original is unchanged")

	same := c.ForInstance("https://data.hdx.rwlabs.org/").(*CKANClient)
	assert.Equal(t, "k", same.apiKey)
}
