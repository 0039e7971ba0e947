package domain

type Settings struct {
	// Source actuellement sélectionnée. Vide = aucune source; chaque
	// opération doit échouer explicitement plutôt que choisir un défaut.
	Provider ProviderID `json:"provider"`

	// Préférences de lecture.
	PreferredQuality string `json:"preferredQuality"` // ex: "1080p"
	PreferredAudio   string `json:"preferredAudio"`   // raw / sub / dub
	PreferredServer  string `json:"preferredServer"`

	// Tri de la liste d'épisodes (true = descendant).
	ReverseSort bool `json:"reverseSort"`

	// Enchaînement automatique vers l'épisode suivant en fin de lecture.
	AutoPlay bool `json:"autoPlay"`

	// Résoudre un lien de téléchargement plutôt qu'un flux.
	DownloadInsteadOfPlay bool `json:"downloadInsteadOfPlay"`

	// Push de progression vers le service de tracking.
	PushSync bool `json:"pushSync"`

	// Tracker (optionnel): token perso pour les mutations auth.
	TrackerToken string `json:"trackerToken"`

	// Correspondances manuelles titre -> id tracker, prioritaires sur la
	// recherche par titre.
	TrackerOverrides map[string]int `json:"trackerOverrides,omitempty"`

	// Concurrence des fetchs providers.
	MaxConcurrentFetches int `json:"maxConcurrentFetches"`
}

func DefaultSettings() Settings {
	return Settings{
		PreferredQuality:     "1080p",
		PreferredAudio:       "sub",
		ReverseSort:          false,
		AutoPlay:             true,
		PushSync:             false,
		MaxConcurrentFetches: 4,
	}
}
