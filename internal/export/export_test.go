package export

import (
	"strings"
	"testing"
	"time"
)

func TestRenderReportHTML(t *testing.T) {
	data := TemplateData{
		Title:       "FarmConnect",
		Owner:       "sarah",
		GeneratedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Score:       72,
		Verdict:     "GO",
		Unlocked:    true,
		Delta:       "+13",
		Dimensions: []TemplateDimension{
			{Label: "Idea Clarity", Display: "7/10", Normalized: 70, Detail: "Well articulated"},
			{Label: "Market Validation", Display: "68/100", Normalized: 68},
		},
		Fields: []TemplateField{
			{Label: "Idea Title", Value: "FarmConnect"},
			{Label: "Problem Statement", Value: "Farmers lack direct market access"},
			{Label: "Business Model", Value: ""},
		},
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"FarmConnect",
		"72/100",
		"GO",
		"+13",
		"7/10",
		"Farmers lack direct market access",
		"Not filled in",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
	if !strings.Contains(html, "Downstream planning stages unlocked") {
		t.Error("expected unlock banner for score above threshold")
	}
}

func TestRenderReportHTMLWithoutDelta(t *testing.T) {
	html, err := RenderReportHTML(TemplateData{
		Title:   "FarmConnect",
		Score:   34,
		Verdict: "PIVOT",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "since last validation") {
		t.Error("first validation should not show a delta")
	}
	if strings.Contains(html, "Downstream planning stages unlocked") {
		t.Error("score below threshold should not show unlock banner")
	}
}

func TestDimensionDisplay(t *testing.T) {
	tests := []struct {
		score    float64
		scale    int
		expected string
	}{
		{7, 10, "7/10"},
		{68, 100, "68/100"},
		{7.5, 10, "7.5/10"},
	}
	for _, tt := range tests {
		if got := DimensionDisplay(tt.score, tt.scale); got != tt.expected {
			t.Errorf("DimensionDisplay(%v, %d) = %q, want %q", tt.score, tt.scale, got, tt.expected)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "FarmConnect", "FarmConnect"},
		{"spaces to hyphens", "Farm Connect App", "Farm-Connect-App"},
		{"special chars stripped", "Farm/Connect: v2!", "FarmConnect-v2"},
		{"empty title", "", "validation-report"},
		{"long title truncated", strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b<c>")
	want := "a%20b%3Cc%3E"
	if got != want {
		t.Errorf("percentEncodeForDataURL = %q, want %q", got, want)
	}
}
