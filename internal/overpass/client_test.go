package overpass

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPClientQueryPostsBodyAndHeaders(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	client := &HTTPClient{Endpoint: srv.URL, HTTPClient: http.DefaultClient}
	body, status, err := client.Query(context.Background(), "node(1);")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"elements":[]}`, string(body))

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "text/plain", gotContentType)
	require.Equal(t, "node(1);", gotBody)
}

func TestHTTPClientQueryPassesThroughNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("line 1: parse error"))
	}))
	defer srv.Close()

	client := &HTTPClient{Endpoint: srv.URL, HTTPClient: http.DefaultClient}
	body, status, err := client.Query(context.Background(), "not valid oql")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "line 1: parse error", string(body))
}
