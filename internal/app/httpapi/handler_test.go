package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	app "github.com/JacLaoky/SogniPet-miniapp/internal/app"
	gallerysvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/gallery"
	generatesvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/generate"
	mintsvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/mint"
	pinsvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/pinning"
	pinclient "github.com/JacLaoky/SogniPet-miniapp/internal/pinning"
	"github.com/JacLaoky/SogniPet-miniapp/internal/sogni"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/testutil"
)

const (
	freeUser    = "0x1111111111111111111111111111111111111111"
	premiumUser = "0x2222222222222222222222222222222222222222"
)

type fakePinner struct{}

func (f *fakePinner) FetchBytes(_ context.Context, url string) ([]byte, error) {
	return []byte("png"), nil
}

func (f *fakePinner) PinFile(_ context.Context, _ string, content io.Reader) (string, error) {
	io.Copy(io.Discard, content)
	return "QmImage", nil
}

func (f *fakePinner) PinJSON(_ context.Context, _ interface{}) (string, error) {
	return "QmMeta", nil
}

type fakeResolver struct{}

func (fakeResolver) GatewayURL(uri string) (string, error) {
	if !strings.HasPrefix(uri, "ipfs://") {
		return "", fmt.Errorf("not an ipfs URI: %q", uri)
	}
	return "https://gateway.test/ipfs/" + strings.TrimPrefix(uri, "ipfs://"), nil
}

func (fakeResolver) FetchJSON(_ context.Context, _ string, target interface{}) error {
	*(target.(*pinclient.Metadata)) = pinclient.Metadata{
		Name:        "SogniPet: test pet...",
		Description: "test pet",
		Image:       "ipfs://QmImage",
	}
	return nil
}

func newTestHandler(t *testing.T) (http.Handler, *testutil.MockChain, *testutil.MockGeneration) {
	t.Helper()

	chain := testutil.NewMockChain()
	chain.SetPremium(premiumUser, true)

	gen := &testutil.MockGeneration{
		ModelList: []sogni.Model{
			{ID: "model-small", Name: "Small", WorkerCount: 3},
			{ID: "model-popular", Name: "Popular", WorkerCount: 9},
		},
		ImageURL: "https://cdn.sogni.test/result.png",
	}
	clientFunc := func(context.Context) (generatesvc.GenerationClient, error) {
		return gen, nil
	}

	pins := pinsvc.New(&fakePinner{}, true, nil)

	application := &app.Application{
		Generate: generatesvc.New(chain, clientFunc, nil),
		Pins:     pins,
		Gallery:  gallerysvc.New(chain, fakeResolver{}, nil),
		Premium:  chain,
	}
	return NewHandler(application), chain, gen
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestGenerateFreeUser(t *testing.T) {
	handler, _, gen := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt":      "tiny cat",
		"userAddress": freeUser,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	if body["imageUrl"] != "https://cdn.sogni.test/result.png" {
		t.Errorf("unexpected imageUrl %v", body["imageUrl"])
	}

	params, ok := gen.LastSubmitted()
	if !ok {
		t.Fatal("no project submitted")
	}
	if params.ModelID != "model-popular" {
		t.Errorf("free user got model %q, want the most popular", params.ModelID)
	}
}

func TestGeneratePromptTooLong(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt":      strings.Repeat("x", generatesvc.FreePromptLimit+1),
		"userAddress": freeUser,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "Upgrade to premium") {
		t.Errorf("error message %q does not mention the upgrade path", msg)
	}
}

func TestGeneratePremiumLongPrompt(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt":      strings.Repeat("x", generatesvc.FreePromptLimit+1),
		"userAddress": premiumUser,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for premium user, got %d", rec.Code)
	}
}

func TestGenerateModelRequiresPremium(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt":      "tiny cat",
		"modelId":     "model-small",
		"userAddress": freeUser,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body["error"] != "You must pay to unlock this model" {
		t.Errorf("unexpected error message %v", body["error"])
	}
}

func TestGeneratePremiumModelSelection(t *testing.T) {
	handler, _, gen := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt":      "tiny cat",
		"modelId":     "model-small",
		"userAddress": premiumUser,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	params, _ := gen.LastSubmitted()
	if params.ModelID != "model-small" {
		t.Errorf("premium user got model %q, want the requested one", params.ModelID)
	}
}

func TestGenerateMissingFields(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt": "tiny dragon",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateMalformedBody(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateEmptyResult(t *testing.T) {
	handler, _, gen := newTestHandler(t)
	gen.NoResult = true

	rec, body := doJSON(t, handler, http.MethodPost, "/generate", map[string]string{
		"prompt":      "tiny cat",
		"userAddress": freeUser,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body["error"] != "Image generation failed, no URLs returned." {
		t.Errorf("unexpected error %v", body["error"])
	}
}

func TestModels(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	models, ok := body["models"].([]interface{})
	if !ok || len(models) != 2 {
		t.Fatalf("unexpected models payload %v", body)
	}
}

func TestUpload(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/upload", map[string]string{
		"imageUrl": "https://cdn.sogni.test/result.png",
		"prompt":   "tiny dragon",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	if body["metadataUri"] != "ipfs://QmMeta" {
		t.Errorf("unexpected metadataUri %v", body["metadataUri"])
	}
}

func TestUploadMissingFields(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/upload", map[string]string{
		"imageUrl": "https://cdn.sogni.test/result.png",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadWithoutCredential(t *testing.T) {
	application := &app.Application{
		Pins: pinsvc.New(&fakePinner{}, false, nil),
	}
	h := NewHandler(application)

	rec, body := doJSON(t, h, http.MethodPost, "/upload", map[string]string{
		"imageUrl": "https://cdn.sogni.test/result.png",
		"prompt":   "tiny dragon",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body["error"] != "Pinata JWT not set" {
		t.Errorf("unexpected error %v", body["error"])
	}
}

func TestMintWithoutChain(t *testing.T) {
	application := &app.Application{}
	h := NewHandler(application)

	rec, _ := doJSON(t, h, http.MethodPost, "/mint", map[string]string{
		"imageUrl":    "https://cdn.sogni.test/result.png",
		"prompt":      "tiny cat",
		"userAddress": freeUser,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestMintMissingOwner(t *testing.T) {
	application := &app.Application{
		Mint: mintsvc.New(pinsvc.New(&fakePinner{}, true, nil), nil, "key", common.Address{}, nil),
	}
	h := NewHandler(application)

	rec, _ := doJSON(t, h, http.MethodPost, "/mint", map[string]string{
		"imageUrl": "https://cdn.sogni.test/result.png",
		"prompt":   "tiny dragon",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGallery(t *testing.T) {
	handler, chain, _ := newTestHandler(t)
	chain.AddToken(freeUser, "ipfs://QmMeta")

	rec, body := doJSON(t, handler, http.MethodGet, "/gallery/"+freeUser, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	pets, ok := body["pets"].([]interface{})
	if !ok || len(pets) != 1 {
		t.Fatalf("unexpected gallery payload %v", body)
	}
}

func TestGalleryInvalidAddress(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodGet, "/gallery/not-an-address", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPremium(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/premium/"+premiumUser, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["isPremium"] != true {
		t.Errorf("expected premium, got %v", body["isPremium"])
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/premium/"+freeUser, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["isPremium"] != false {
		t.Errorf("expected non-premium, got %v", body["isPremium"])
	}
}

func TestPremiumInvalidAddress(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodGet, "/premium/not-an-address", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPremiumWithoutChain(t *testing.T) {
	h := NewHandler(&app.Application{})

	rec, _ := doJSON(t, h, http.MethodGet, "/premium/"+freeUser, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health payload %v", body)
	}
}
