package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/retry"
	"bridge-wrapped/internal/tokens"
)

// 2025 calendar year in Unix seconds.
const (
	yearStart int64 = 1735689600
	yearEnd   int64 = 1767225599
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:  baseURL,
		PageSize: 2,
		MaxPages: 10,
		Timeout:  time.Second,
		Retry:    retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type stubResolver struct {
	infos   map[string]tokens.Info
	batches [][]string
}

func (s *stubResolver) Resolve(_ context.Context, address string) (tokens.Info, bool) {
	info, ok := s.infos[address]
	return info, ok
}

func (s *stubResolver) ResolveMany(_ context.Context, addresses []string) map[string]tokens.Info {
	s.batches = append(s.batches, addresses)
	out := make(map[string]tokens.Info)
	for _, a := range addresses {
		if info, ok := s.infos[a]; ok {
			out[a] = info
		}
	}
	return out
}
