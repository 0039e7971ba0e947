package httpjson

import (
	"encoding/json"
	"net/http"
)

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	Write(w, status, errorBody{Error: errorDetail{Message: message}})
}

func WriteCodedError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
