package domain

import (
	"fmt"
	"strings"
)

// Preset selects a fixed effect instruction appended to the enrichment prompt.
type Preset string

const (
	PresetNone     Preset = "none"
	PresetHug      Preset = "hug"
	PresetKiss     Preset = "kiss"
	PresetDance    Preset = "dance"
	PresetLaugh    Preset = "laugh"
	PresetZoomIn   Preset = "zoom-in"
	PresetRetro    Preset = "retro"
	PresetDissolve Preset = "dissolve"
)

var presetInstructions = map[Preset]string{
	PresetNone:     "",
	PresetHug:      "EFFECT: AI Hug. Ensure two people are embracing/hugging each other warmly.",
	PresetKiss:     "EFFECT: AI Kiss. Ensure a romantic and gentle kiss between two people.",
	PresetDance:    "EFFECT: AI Dance. Ensure the subject is performing fluid dance movements.",
	PresetLaugh:    "EFFECT: AI Laugh. Ensure the subject has a wide, joyful, and realistic laugh with visible facial expressions.",
	PresetZoomIn:   "TECHNIQUE: Cinematic Zoom. The camera must slowly and dramatically zoom into the subject.",
	PresetRetro:    "STYLE: Retro 16mm Film. Use vintage colors, grain, and nostalgic lighting.",
	PresetDissolve: "EFFECT: Magical Dissolve. The subject should realistically dissolve into glowing particles or smoke.",
}

// ParsePreset validates a preset id. The empty string maps to PresetNone.
func ParsePreset(raw string) (Preset, error) {
	id := Preset(strings.ToLower(strings.TrimSpace(raw)))
	if id == "" {
		return PresetNone, nil
	}
	if _, ok := presetInstructions[id]; !ok {
		return PresetNone, fmt.Errorf("%w: %q", ErrInvalidPreset, raw)
	}
	return id, nil
}

// Instruction returns the fragment for p; PresetNone and unknown values yield "".
func (p Preset) Instruction() string {
	return presetInstructions[p]
}

// Presets lists the selectable presets, PresetNone first.
func Presets() []Preset {
	return []Preset{PresetNone, PresetHug, PresetKiss, PresetDance, PresetLaugh, PresetZoomIn, PresetRetro, PresetDissolve}
}
