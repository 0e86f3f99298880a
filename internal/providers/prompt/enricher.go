package prompt

import (
	"context"
	"strings"

	"veostudio/internal/domain"
)

// Request describes one enrichment call.
type Request struct {
	Prompt    string
	Preset    domain.Preset
	Translate bool
	Audio     bool
}

// Result is the prompt to submit. When Enriched is false Prompt is the raw
// input and FallbackReason names the step that failed.
type Result struct {
	Prompt         string
	Enriched       bool
	FallbackReason string
}

// Enricher refines a user prompt. Implementations never fail: any problem
// yields the original prompt.
type Enricher interface {
	Enrich(ctx context.Context, req Request) Result
}

// Passthrough returns prompts unchanged. Used when enrichment is disabled.
type Passthrough struct{}

func NewPassthrough() Passthrough {
	return Passthrough{}
}

func (Passthrough) Enrich(ctx context.Context, req Request) Result {
	return Result{Prompt: req.Prompt, FallbackReason: "disabled"}
}

// BuildInstruction renders the director instruction sent to the text model.
func BuildInstruction(req Request) string {
	sb := &strings.Builder{}
	sb.WriteString("You are an expert Arabic-to-English Cinematic Director for Google Veo 3.1.\n")
	if req.Translate {
		sb.WriteString("Your goal is to translate, expand, and refine user requests into high-end, SAFE, English cinematic prompts.\n")
	} else {
		sb.WriteString("Your goal is to verify and refine user requests into high-end, SAFE, English cinematic prompts.\n")
	}
	if fragment := req.Preset.Instruction(); fragment != "" {
		sb.WriteString("\nSPECIAL INSTRUCTION: ")
		sb.WriteString(fragment)
		sb.WriteString("\n")
	}

	sb.WriteString("\nSTRICT PROTOCOL:\n")
	if req.Translate {
		sb.WriteString("1. LANGUAGE: Translate the user's input to English if it is in Arabic, and expand it with cinematic details.\n")
	} else {
		sb.WriteString("1. LANGUAGE: Keep the core meaning of the user input, but ensure it is in professional cinematic English.\n")
	}
	sb.WriteString("2. ARABIC CONTEXT: If the user writes in Arabic or specifies an Arabic context, ensure the subject has Middle Eastern/Arabic features and context unless specified otherwise.\n")
	sb.WriteString("3. GENDER LOCK: You MUST stick to the gender in the user input. (e.g., 'شاب' = Young MAN, 'فتاة' = Young WOMAN). NEVER swap them.\n")
	sb.WriteString("4. SAFETY & COMPLIANCE: Use artistic language that avoids triggering Vertex AI safety filters. Avoid overly detailed physical descriptions that might be flagged. Focus on \"Cinematic\", \"Professional\", and \"Artistic\".\n")
	sb.WriteString("5. SPEECH & AUDIO: If the user mentions dialogue (e.g., 'السلام عليكم'):\n")
	sb.WriteString("   - Visuals: \"The subject is speaking clear Arabic, visible lip synchronization, friendly facial expression.\"\n")
	if req.Audio {
		sb.WriteString("   - Audio: Describe a 'warm, clear male/female voice speaking Arabic' to guide the audio engine.\n")
	}
	sb.WriteString("6. TECHNIQUE: Specify camera lens (e.g., 35mm), soft volumetric lighting, and 8K photorealistic textures.\n")
	sb.WriteString("\nUSER INPUT: ")
	sb.WriteString(req.Prompt)
	return sb.String()
}

var _ Enricher = Passthrough{}
