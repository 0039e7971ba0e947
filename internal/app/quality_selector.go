package app

import (
	"context"
	"strings"

	"github.com/mizukiro/anibridge/internal/domain"
)

// PromptFunc est le rappel de choix interactif fourni par la couche UI.
// Il renvoie l'index choisi dans options. Le sélecteur ne bloque jamais
// de lui-même: soit il tranche seul, soit il délègue via ce callback.
type PromptFunc func(ctx context.Context, kind string, options []string) (int, error)

// ChoiceRequiredError signale qu'un choix interactif est nécessaire et
// qu'aucun PromptFunc n'était fourni. La couche HTTP le traduit en réponse
// "voici les options" plutôt qu'en échec.
type ChoiceRequiredError struct {
	Kind    string
	Options []string
}

func (e *ChoiceRequiredError) Error() string {
	return "interactive choice required for " + e.Kind
}

// SelectOption applique la politique commune qualité/catégorie/serveur:
//
//  1. correspondance exacte avec la préférence -> pas de prompt;
//  2. une seule option disponible -> auto-choisie, pas de prompt;
//  3. libellés numériques ("720p"...) -> plus proche de la préférence par
//     écart absolu de la portion numérique;
//  4. sinon choix interactif.
func SelectOption(ctx context.Context, kind, preferred string, options []string, prompt PromptFunc) (string, error) {
	if len(options) == 0 {
		return "", coded(CodeNoCandidates, "no "+kind+" options", nil)
	}

	if p := strings.TrimSpace(preferred); p != "" {
		for _, o := range options {
			if strings.EqualFold(o, p) {
				return o, nil
			}
		}
	}

	if len(options) == 1 {
		return options[0], nil
	}

	if want, ok := domain.EpisodeNumberValue(preferred); ok {
		best := -1
		bestDiff := 0
		for i, o := range options {
			n, ok := domain.EpisodeNumberValue(o)
			if !ok {
				continue
			}
			diff := n - want
			if diff < 0 {
				diff = -diff
			}
			if best < 0 || diff < bestDiff {
				best = i
				bestDiff = diff
			}
		}
		if best >= 0 {
			return options[best], nil
		}
	}

	if prompt == nil {
		return "", &ChoiceRequiredError{Kind: kind, Options: options}
	}
	idx, err := prompt(ctx, kind, options)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return "", coded(CodeNoCandidates, "choice out of range", nil)
	}
	return options[idx], nil
}

// SelectVariant choisit une rung du ladder par son label.
func SelectVariant(ctx context.Context, kind, preferred string, variants []domain.QualityVariant, prompt PromptFunc) (domain.QualityVariant, error) {
	labels := make([]string, len(variants))
	for i, v := range variants {
		labels[i] = v.Label
	}
	label, err := SelectOption(ctx, kind, preferred, labels, prompt)
	if err != nil {
		return domain.QualityVariant{}, err
	}
	for _, v := range variants {
		if v.Label == label {
			return v, nil
		}
	}
	return domain.QualityVariant{}, coded(CodeNoCandidates, "selected variant vanished", nil)
}
