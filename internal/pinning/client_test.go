package pinning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		APIURL:     server.URL,
		GatewayURL: server.URL + "/ipfs/",
		JWT:        "jwt-token",
	}, server.Client(), nil)
	require.NoError(t, err)
	return client, server
}

func TestPinFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		require.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "pet.png", header.Filename)
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmImage"})
	}))

	hash, err := client.PinFile(context.Background(), "pet.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "QmImage", hash)
}

func TestPinJSON(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var meta Metadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		require.Equal(t, "ipfs://QmImage", meta.Image)
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmMeta"})
	}))

	hash, err := client.PinJSON(context.Background(), Metadata{
		Name:        "SogniPet: a red fox...",
		Description: "a red fox",
		Image:       "ipfs://QmImage",
	})
	require.NoError(t, err)
	require.Equal(t, "QmMeta", hash)
}

func TestPinSurfacesProviderDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"reason":"INVALID_REQUEST","details":"file too large"}}`))
	}))

	_, err := client.PinFile(context.Background(), "pet.png", strings.NewReader("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Pinata image upload failed")
	require.Contains(t, err.Error(), "file too large")
}

func TestGatewayURL(t *testing.T) {
	client, server := newTestClient(t, http.NotFoundHandler())

	url, err := client.GatewayURL("ipfs://QmMeta")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/ipfs/QmMeta", url)

	_, err = client.GatewayURL("https://example.com/QmMeta")
	require.Error(t, err, "non-ipfs URIs must not pass through silently")
}

func TestFetchBytesNotFound(t *testing.T) {
	client, server := newTestClient(t, http.NotFoundHandler())

	_, err := client.FetchBytes(context.Background(), server.URL+"/missing.png")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Failed to fetch image")
}
