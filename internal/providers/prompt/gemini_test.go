package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"veostudio/internal/domain"
	"veostudio/internal/providers/vertex"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AcquireToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newEnricher(t *testing.T, tokens TokenSource, rt roundTripFunc, onFallback func(string, error)) *GeminiEnricher {
	t.Helper()
	enricher, err := NewGeminiEnricher(GeminiOptions{
		Tokens:     tokens,
		Endpoints:  vertex.NewEndpoints("https://vertex.test", "proj", "us-central1"),
		HTTPClient: &http.Client{Transport: rt},
		OnFallback: onFallback,
	})
	if err != nil {
		t.Fatalf("NewGeminiEnricher returned error: %v", err)
	}
	return enricher
}

func TestGeminiEnricherReturnsModelText(t *testing.T) {
	var instruction string
	enricher := newEnricher(t, staticTokens{token: "tok"}, func(r *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		var body geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		instruction = body.Contents[0].Parts[0].Text
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  A young man walks at golden hour, 35mm lens. \n"}]}}]}`), nil
	}, nil)

	res := enricher.Enrich(context.Background(), Request{Prompt: "شاب يمشي", Preset: domain.PresetRetro, Translate: true})
	if !res.Enriched {
		t.Fatalf("expected enriched result, got fallback %q", res.FallbackReason)
	}
	if res.Prompt != "A young man walks at golden hour, 35mm lens." {
		t.Fatalf("Prompt = %q", res.Prompt)
	}
	if !strings.Contains(instruction, "USER INPUT: شاب يمشي") {
		t.Fatalf("instruction does not carry the user input: %q", instruction)
	}
	if !strings.Contains(instruction, domain.PresetRetro.Instruction()) {
		t.Fatalf("instruction does not carry the preset fragment")
	}
}

func TestGeminiEnricherFallsBackToRawPrompt(t *testing.T) {
	cases := []struct {
		name   string
		tokens TokenSource
		rt     roundTripFunc
		reason string
	}{
		{
			name:   "token",
			tokens: staticTokens{err: domain.ErrCredentialAcquisition},
			rt: func(r *http.Request) (*http.Response, error) {
				t.Errorf("no request expected without a token")
				return nil, errors.New("unreachable")
			},
			reason: "token",
		},
		{
			name:   "transport",
			tokens: staticTokens{token: "tok"},
			rt: func(r *http.Request) (*http.Response, error) {
				return nil, errors.New("boom")
			},
			reason: "http_request",
		},
		{
			name:   "status",
			tokens: staticTokens{token: "tok"},
			rt: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"quota"}}`), nil
			},
			reason: "http_status",
		},
		{
			name:   "malformed",
			tokens: staticTokens{token: "tok"},
			rt: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `not json`), nil
			},
			reason: "decode_response",
		},
		{
			name:   "no candidates",
			tokens: staticTokens{token: "tok"},
			rt: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"candidates":[]}`), nil
			},
			reason: "empty_response",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var captured string
			enricher := newEnricher(t, tc.tokens, tc.rt, func(reason string, err error) {
				captured = reason
			})
			res := enricher.Enrich(context.Background(), Request{Prompt: "sunset over mountains"})
			if res.Enriched {
				t.Fatalf("expected fallback")
			}
			if res.Prompt != "sunset over mountains" {
				t.Fatalf("Prompt = %q, want raw prompt", res.Prompt)
			}
			if res.FallbackReason != tc.reason || captured != tc.reason {
				t.Fatalf("reason = %q (hook %q), want %q", res.FallbackReason, captured, tc.reason)
			}
		})
	}
}

func TestBuildInstruction(t *testing.T) {
	plain := BuildInstruction(Request{Prompt: "a cat"})
	if !strings.Contains(plain, "verify and refine") {
		t.Fatalf("expected refine wording without translation")
	}
	if strings.Contains(plain, "SPECIAL INSTRUCTION") {
		t.Fatalf("no preset fragment expected for PresetNone")
	}
	if strings.Contains(plain, "Audio: Describe") {
		t.Fatalf("voice guidance must only appear when audio is requested")
	}
	if !strings.Contains(plain, "GENDER LOCK") || !strings.Contains(plain, "NEVER swap them") {
		t.Fatalf("gender lock rule missing")
	}

	full := BuildInstruction(Request{Prompt: "a cat", Preset: domain.PresetHug, Translate: true, Audio: true})
	for _, want := range []string{"translate, expand, and refine", "SPECIAL INSTRUCTION: EFFECT: AI Hug", "Audio: Describe", "Translate the user's input to English"} {
		if !strings.Contains(full, want) {
			t.Fatalf("instruction missing %q", want)
		}
	}
	if !strings.HasSuffix(full, "USER INPUT: a cat") {
		t.Fatalf("instruction must end with the user input")
	}
}

func TestTrimCodeFence(t *testing.T) {
	if got := trimCodeFence("```\nA wide shot\n```"); got != "A wide shot" {
		t.Fatalf("trimCodeFence = %q", got)
	}
	if got := trimCodeFence("plain"); got != "plain" {
		t.Fatalf("trimCodeFence = %q", got)
	}
}

func TestPassthrough(t *testing.T) {
	res := NewPassthrough().Enrich(context.Background(), Request{Prompt: "raw"})
	if res.Prompt != "raw" || res.Enriched {
		t.Fatalf("unexpected passthrough result %+v", res)
	}
}
