package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/juggajay/site-proof-sub006/internal/domain"
)

const codeRateLimited = "RATE_LIMITED"

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIResponse{
		Success: false,
		Error:   &domain.APIError{Code: code, Message: message},
	})
}
