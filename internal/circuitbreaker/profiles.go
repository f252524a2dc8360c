package circuitbreaker

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Names of the built-in dependency profiles.
const (
	ProfileMusicBackend = "music-backend"
	ProfileDatabase     = "database"
	ProfileCache        = "cache"
	ProfileChatAPI      = "chat-api"
	ProfileContentAPI   = "content-api"
	ProfileSearchAPI    = "search-api"
	ProfileExternalAPI  = "external-api"
)

// ServiceUnavailable is the substitute payload content-style APIs resolve
// with while their breaker is open.
type ServiceUnavailable struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
}

// DefaultProfiles returns the static per-dependency-class configurations
// used to pre-populate the registry at startup. Callers receive a fresh
// slice and may tune the numeric fields before handing it to a registry.
func DefaultProfiles() []Config {
	return []Config{
		{
			Name:             ProfileMusicBackend,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          10 * time.Second,
			ResetTimeout:     30 * time.Second,
		},
		{
			Name:             ProfileDatabase,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          3 * time.Second,
			ResetTimeout:     20 * time.Second,
		},
		{
			Name:             ProfileCache,
			FailureThreshold: 8,
			SuccessThreshold: 1,
			Timeout:          500 * time.Millisecond,
			ResetTimeout:     10 * time.Second,
			// A broken cache reads as a miss so callers fall through to
			// the backing store.
			Fallback: func(context.Context, error) any { return nil },
		},
		{
			Name:             ProfileChatAPI,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          10 * time.Second,
			ResetTimeout:     30 * time.Second,
			// The chat platform throttles aggressively; expected 429s
			// must not trip the breaker.
			IsFailure: ExemptStatus(http.StatusTooManyRequests),
		},
		{
			Name:             ProfileContentAPI,
			FailureThreshold: 4,
			SuccessThreshold: 2,
			Timeout:          8 * time.Second,
			ResetTimeout:     45 * time.Second,
			Fallback: func(context.Context, error) any {
				return &ServiceUnavailable{Success: false, Code: "UNAVAILABLE"}
			},
		},
		{
			Name:             ProfileSearchAPI,
			FailureThreshold: 4,
			SuccessThreshold: 2,
			Timeout:          6 * time.Second,
			ResetTimeout:     30 * time.Second,
		},
		{
			Name:             ProfileExternalAPI,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          10 * time.Second,
			ResetTimeout:     30 * time.Second,
		},
	}
}

// ExemptStatus builds a classifier that counts every error except
// StatusErrors carrying one of the given HTTP status codes.
func ExemptStatus(codes ...int) Classifier {
	return func(err error) bool {
		var se *StatusError
		if !errors.As(err, &se) {
			return true
		}
		for _, code := range codes {
			if se.Code == code {
				return false
			}
		}
		return true
	}
}
