package app

import (
	"context"
	"errors"
	"testing"
)

func TestSelectOption_ExactMatchWinsWithoutPrompt(t *testing.T) {
	got, err := SelectOption(context.Background(), "quality", "1080p", []string{"480p", "1080p", "720p"}, nil)
	if err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if got != "1080p" {
		t.Fatalf("want 1080p, got %s", got)
	}
}

func TestSelectOption_SingleOptionAutoPicked(t *testing.T) {
	prompted := false
	prompt := func(ctx context.Context, kind string, options []string) (int, error) {
		prompted = true
		return 0, nil
	}
	got, err := SelectOption(context.Background(), "server", "vidstream", []string{"megacloud"}, prompt)
	if err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if got != "megacloud" {
		t.Fatalf("want megacloud, got %s", got)
	}
	if prompted {
		t.Fatalf("single option should never prompt")
	}
}

func TestSelectOption_NumericClosestFallback(t *testing.T) {
	// 1080p indisponible: 720p est plus proche que 480p.
	got, err := SelectOption(context.Background(), "quality", "1080p", []string{"480p", "720p"}, nil)
	if err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if got != "720p" {
		t.Fatalf("want 720p, got %s", got)
	}
}

func TestSelectOption_AmbiguousWithoutPromptReturnsChoiceRequired(t *testing.T) {
	_, err := SelectOption(context.Background(), "server", "", []string{"alpha", "beta"}, nil)
	var cre *ChoiceRequiredError
	if !errors.As(err, &cre) {
		t.Fatalf("want ChoiceRequiredError, got %v", err)
	}
	if cre.Kind != "server" || len(cre.Options) != 2 {
		t.Fatalf("unexpected choice payload: %+v", cre)
	}
}

func TestSelectOption_PromptDecidesAmbiguousCase(t *testing.T) {
	prompt := func(ctx context.Context, kind string, options []string) (int, error) {
		return 1, nil
	}
	got, err := SelectOption(context.Background(), "server", "", []string{"alpha", "beta"}, prompt)
	if err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if got != "beta" {
		t.Fatalf("want beta, got %s", got)
	}
}

func TestSelectOption_EmptyOptionsIsNoCandidates(t *testing.T) {
	_, err := SelectOption(context.Background(), "quality", "1080p", nil, nil)
	if ErrorCode(err) != CodeNoCandidates {
		t.Fatalf("want %s, got %v", CodeNoCandidates, err)
	}
}

func TestSelectOption_PromptOutOfRangeRejected(t *testing.T) {
	prompt := func(ctx context.Context, kind string, options []string) (int, error) {
		return 5, nil
	}
	_, err := SelectOption(context.Background(), "server", "", []string{"alpha", "beta"}, prompt)
	if ErrorCode(err) != CodeNoCandidates {
		t.Fatalf("want %s, got %v", CodeNoCandidates, err)
	}
}
