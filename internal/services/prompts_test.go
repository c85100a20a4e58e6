package services

import (
	"strings"
	"testing"
)

func TestBuildAnalyzePromptIncludesContext(t *testing.T) {
	p := BuildAnalyzePrompt(AnalyzeContext{
		Platform:       "facebook",
		Niche:          "fitness",
		TargetAudience: "new parents",
		ProductOffer:   "resistance bands",
	}, ImagePart{MIMEType: "image/png", Data: []byte{1}})

	for _, want := range []string{"facebook", "fitness", "new parents", "resistance bands"} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("prompt text missing %q", want)
		}
	}
	if len(p.Images) != 1 {
		t.Errorf("images = %d, want 1", len(p.Images))
	}
	if !strings.Contains(p.System, `"overall_score"`) {
		t.Error("system prompt missing output contract")
	}
}

func TestBuildAnalyzePromptOmitsEmptyOptionalFields(t *testing.T) {
	p := BuildAnalyzePrompt(AnalyzeContext{Platform: "tiktok", Niche: "beauty"}, ImagePart{})

	if strings.Contains(p.Text, "Target audience") {
		t.Error("empty target audience should be omitted")
	}
	if strings.Contains(p.Text, "Product/offer") {
		t.Error("empty product offer should be omitted")
	}
}

func TestBuildComparePromptOrdersImages(t *testing.T) {
	a := ImagePart{MIMEType: "image/png", Data: []byte{0xA}}
	b := ImagePart{MIMEType: "image/jpeg", Data: []byte{0xB}}

	p := BuildComparePrompt(CompareContext{Platform: "instagram", Niche: "fashion"}, a, b)

	if len(p.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(p.Images))
	}
	if p.Images[0].Data[0] != 0xA || p.Images[1].Data[0] != 0xB {
		t.Error("image A must come before image B")
	}
}

func TestBuildGeneratePromptFlagsFallback(t *testing.T) {
	p := BuildGeneratePrompt(GenerateContext{
		Product:   &ProductInfo{Name: "ergo desk", FetchSuccess: false},
		Platforms: []string{"facebook", "tiktok"},
		Tone:      "playful",
	})

	if !strings.Contains(p.Text, "could not be fetched") {
		t.Error("fallback product info should be flagged in the prompt")
	}
	if !strings.Contains(p.Text, "facebook, tiktok") {
		t.Error("prompt missing platform list")
	}
	if len(p.Images) != 0 {
		t.Error("generation prompt must not attach images")
	}
}

func TestBuildImprovePromptListsWeaknesses(t *testing.T) {
	p := BuildImprovePrompt(ImproveContext{
		Platform:     "facebook",
		Niche:        "tech",
		OverallScore: 62,
		Weaknesses:   []string{"cta below the fold", "washed-out palette"},
	}, ImagePart{MIMEType: "image/png", Data: []byte{1}})

	if !strings.Contains(p.Text, "62/100") {
		t.Error("prompt missing prior score")
	}
	if !strings.Contains(p.Text, "cta below the fold") || !strings.Contains(p.Text, "washed-out palette") {
		t.Error("prompt missing prior weaknesses")
	}
}
