package app

import (
	"errors"

	"github.com/mizukiro/anibridge/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// Codes d'erreur stables exposés par l'API et les logs.
//
// Taxonomie: configuration (pas de source sélectionnée), réseau, statut
// HTTP, parse (markup/JSON inattendu), résolution vide (page valide mais
// aucun candidat), sync tracker (jamais fatal).
const (
	CodeNoSourceSelected = "no_source_selected"
	CodeNetwork          = "network_error"
	CodeHTTPStatus       = "http_status"
	CodeParse            = "parse_error"
	CodeNoCandidates     = "no_candidates"
	CodeSync             = "sync_error"
)

// CodedError attache un code stable à une erreur sous-jacente.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

func coded(code, message string, err error) *CodedError {
	return &CodedError{Code: code, Message: message, Err: err}
}

// ErrorCode extrait le code d'une erreur (ou d'une de ses causes), "" sinon.
func ErrorCode(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
