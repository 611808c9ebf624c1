package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/models"
)

func runCLI(t *testing.T, pricing *config.PricingConfig, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, pricing)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuote_Text(t *testing.T) {
	out, err := runCLI(t, nil, "quote", "--area", "2000", "--pitch", "8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Roof area:     2,000 sq ft at 8/12",
		"Adjusted area: 2,200 sq ft (22 squares)",
		"Pitch surcharge: 10%",
		"Eaves: 179 ft, ridges/valleys: 36 ft (approximated)",
		"$12,100",
		"$14,520",
		"$18,150",
		"subject to onsite inspection",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestQuote_TextRoundsHalfUp(t *testing.T) {
	out, err := runCLI(t, nil, "quote", "--area", "1999.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Roof area:     2,000 sq ft at 0/12") {
		t.Fatalf("expected base area rounded half up in:\n%s", out)
	}
}

func TestQuote_JSONWithMeasuredEdges(t *testing.T) {
	out, err := runCLI(t, nil, "quote", "--area", "1500", "--pitch", "4", "--eave", "180", "--ridge", "40", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var quote models.Quote
	if err := json.Unmarshal([]byte(out), &quote); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if quote.Estimate.Pricing != (models.TierPricing{Good: 8250, Better: 9900, Best: 12375}) {
		t.Fatalf("unexpected pricing %+v", quote.Estimate.Pricing)
	}
	if quote.Breakdown.EaveLength != 180 || quote.Breakdown.RidgeValleyLength != 40 || quote.Breakdown.EdgeLengthsApproximated {
		t.Fatalf("measured edges must be kept: %+v", quote.Breakdown)
	}
	if strings.Contains(out, `"financing"`) {
		t.Fatalf("financing must be omitted without --months")
	}
}

func TestQuote_Financing(t *testing.T) {
	out, err := runCLI(t, nil, "quote", "--area", "2000", "--pitch", "8", "--months", "12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "MONTHLY (12 mo, 0.00% APR)") || !strings.Contains(out, "$1008.33") {
		t.Fatalf("expected 0%% financing column in:\n%s", out)
	}

	if _, err := runCLI(t, nil, "quote", "--area", "2000", "--months", "7"); err == nil {
		t.Fatalf("expected error for unsupported term")
	}
}

func TestQuote_CustomPricing(t *testing.T) {
	pricing := &config.PricingConfig{GoodPerSquare: 400, BetterPerSquare: 600, BestPerSquare: 750}
	out, err := runCLI(t, pricing, "quote", "--area", "1000", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var quote models.Quote
	if err := json.Unmarshal([]byte(out), &quote); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quote.Estimate.Pricing.Good != 4400 {
		t.Fatalf("expected custom good price 4400, got %d", quote.Estimate.Pricing.Good)
	}
}

func TestCommands_Validation(t *testing.T) {
	cases := [][]string{
		{"quote"},
		{"quote", "--area", "-5"},
		{"quote", "--area", "100", "--pitch", "-1"},
		{"quote", "--area", "100", "--format", "xml"},
		{"quote", "--area", "abc"},
		{"edges", "--area", "100", "--format", "yaml"},
		{"tiers", "-f", "csv"},
	}
	for _, args := range cases {
		if _, err := runCLI(t, nil, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestEdges(t *testing.T) {
	out, err := runCLI(t, nil, "edges", "--area", "2000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Eaves: 179 ft") || !strings.Contains(out, "Ridges/valleys: 36 ft") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runCLI(t, nil, "edges", "--area", "0", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var edges models.EdgeLengths
	if err := json.Unmarshal([]byte(out), &edges); err != nil || edges != (models.EdgeLengths{}) {
		t.Fatalf("expected zero edges, got %+v err=%v", edges, err)
	}
}

func TestTiers(t *testing.T) {
	out, err := runCLI(t, nil, "tiers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Good", "$500", "Better", "$600", "Best", "$750", "160 mph"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, nil, "tiers", "-f", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tiers []models.PricingTier
	if err := json.Unmarshal([]byte(out), &tiers); err != nil || len(tiers) != 3 {
		t.Fatalf("expected 3 tiers, got %d err=%v", len(tiers), err)
	}
}
