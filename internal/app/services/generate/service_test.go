package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
	"github.com/JacLaoky/SogniPet-miniapp/internal/sogni"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/testutil"
)

const (
	freeUser    = "0x1111111111111111111111111111111111111111"
	premiumUser = "0x2222222222222222222222222222222222222222"
)

func newService(chain *testutil.MockChain, gen *testutil.MockGeneration) *Service {
	return New(chain, func(context.Context) (GenerationClient, error) { return gen, nil }, nil)
}

func defaultGen() *testutil.MockGeneration {
	return &testutil.MockGeneration{
		ModelList: []sogni.Model{
			{ID: "model-a", Name: "Pet Painter", WorkerCount: 12},
			{ID: "model-b", Name: "Sketcher", WorkerCount: 4},
		},
		ImageURL: "https://cdn.sogni.ai/img-1.png",
	}
}

func TestGenerateFreeUserDefaultModel(t *testing.T) {
	chain := testutil.NewMockChain()
	gen := defaultGen()
	svc := newService(chain, gen)

	// "a red fox" is 9 characters, inside the free limit of 10.
	url, err := svc.Generate(context.Background(), Request{Prompt: "a red fox", UserAddress: freeUser})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if url != "https://cdn.sogni.ai/img-1.png" {
		t.Fatalf("unexpected image url %q", url)
	}

	params, ok := gen.LastSubmitted()
	if !ok {
		t.Fatalf("no project submitted")
	}
	if params.ModelID != "model-a" {
		t.Fatalf("expected most popular model, got %q", params.ModelID)
	}
	if params.Steps != 50 || params.Guidance != 7.5 || params.NumberOfImages != 1 {
		t.Fatalf("unexpected fixed params: %+v", params)
	}
	if params.NegativePrompt != sogni.NegativePrompt || params.StylePrompt != "" {
		t.Fatalf("unexpected prompt params: %+v", params)
	}
}

func TestGenerateRejectsMissingFields(t *testing.T) {
	svc := newService(testutil.NewMockChain(), defaultGen())

	for _, req := range []Request{
		{Prompt: "", UserAddress: freeUser},
		{Prompt: "a red fox", UserAddress: ""},
	} {
		_, err := svc.Generate(context.Background(), req)
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("request %+v: expected validation error, got %v", req, err)
		}
	}
}

func TestPromptLimitGating(t *testing.T) {
	chain := testutil.NewMockChain()
	chain.SetPremium(premiumUser, true)

	cases := []struct {
		name     string
		user     string
		promptLn int
		rejected bool
	}{
		{"free at limit", freeUser, 10, false},
		{"free over limit", freeUser, 11, true},
		{"premium well over free limit", premiumUser, 11, false},
		{"premium at limit", premiumUser, 5000, false},
		{"premium over limit", premiumUser, 5001, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(chain, defaultGen())
			prompt := strings.Repeat("x", tc.promptLn)
			_, err := svc.Generate(context.Background(), Request{Prompt: prompt, UserAddress: tc.user})
			if tc.rejected {
				if !apperr.IsKind(err, apperr.KindAuthorization) {
					t.Fatalf("expected authorization error, got %v", err)
				}
				if !strings.Contains(err.Error(), "Upgrade to premium") {
					t.Fatalf("expected upsell message, got %q", err.Error())
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestModelSelectionGating(t *testing.T) {
	chain := testutil.NewMockChain()
	chain.SetPremium(premiumUser, true)

	t.Run("free user non-default model rejected", func(t *testing.T) {
		svc := newService(chain, defaultGen())
		_, err := svc.Generate(context.Background(), Request{Prompt: "a red fox", ModelID: "model-b", UserAddress: freeUser})
		if !apperr.IsKind(err, apperr.KindAuthorization) {
			t.Fatalf("expected authorization error, got %v", err)
		}
		if !strings.Contains(err.Error(), "must pay to unlock this model") {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("free user explicitly choosing default model passes", func(t *testing.T) {
		gen := defaultGen()
		svc := newService(chain, gen)
		if _, err := svc.Generate(context.Background(), Request{Prompt: "a red fox", ModelID: "model-a", UserAddress: freeUser}); err != nil {
			t.Fatalf("generate: %v", err)
		}
		params, _ := gen.LastSubmitted()
		if params.ModelID != "model-a" {
			t.Fatalf("expected model-a, got %q", params.ModelID)
		}
	})

	t.Run("premium user gets requested model", func(t *testing.T) {
		gen := defaultGen()
		svc := newService(chain, gen)
		if _, err := svc.Generate(context.Background(), Request{Prompt: "a fox", ModelID: "model-b", UserAddress: premiumUser}); err != nil {
			t.Fatalf("generate: %v", err)
		}
		params, _ := gen.LastSubmitted()
		if params.ModelID != "model-b" {
			t.Fatalf("expected model-b, got %q", params.ModelID)
		}
	})
}

func TestGenerateRPCFailure(t *testing.T) {
	chain := testutil.NewMockChain()
	chain.FailReads(errors.New("node unreachable"))
	svc := newService(chain, defaultGen())

	_, err := svc.Generate(context.Background(), Request{Prompt: "a red fox", UserAddress: freeUser})
	if !apperr.IsKind(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGenerateNoChainConfigured(t *testing.T) {
	svc := New(nil, func(context.Context) (GenerationClient, error) { return defaultGen(), nil }, nil)
	_, err := svc.Generate(context.Background(), Request{Prompt: "a red fox", UserAddress: freeUser})
	if !apperr.IsKind(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerateEmptyResult(t *testing.T) {
	gen := defaultGen()
	gen.NoResult = true
	svc := newService(testutil.NewMockChain(), gen)

	_, err := svc.Generate(context.Background(), Request{Prompt: "a red fox", UserAddress: freeUser})
	if !apperr.IsKind(err, apperr.KindEmptyResult) {
		t.Fatalf("expected empty-result error, got %v", err)
	}
}
