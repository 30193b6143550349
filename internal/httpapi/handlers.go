package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/tokens"
)

func (s *Server) handleBridgeStats(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := ValidateAddress(address); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	year, err := ParseYear(r.URL.Query().Get("year"), s.opts.DefaultYear)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid year parameter")
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	stats, err := s.stats.GetWrappedStats(ctx, address, year)
	if err != nil {
		s.logger.Error().Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("address", address).
			Int("year", year).
			Msg("aggregation failed")
		writeError(w, r, http.StatusInternalServerError, "Failed to fetch bridge statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type tokenInfoRequest struct {
	Addresses []string `json:"addresses"`
}

type tokenInfoResponse struct {
	Data    map[string]tokens.Info `json:"data"`
	Missing []string               `json:"missing"`
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Token lookup not configured")
		return
	}

	var req tokenInfoRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Addresses == nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request: addresses must be an array")
		return
	}
	if len(req.Addresses) > maxTokenAddresses {
		writeError(w, r, http.StatusBadRequest, "Invalid request: too many addresses")
		return
	}

	addrs := make([]string, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		a = strings.TrimSpace(a)
		if !common.IsHexAddress(a) {
			writeError(w, r, http.StatusBadRequest, "Invalid token address: "+a)
			return
		}
		addrs = append(addrs, bridge.CanonicalAddress(a))
	}

	found := s.tokens.ResolveMany(r.Context(), addrs)
	resp := tokenInfoResponse{Data: make(map[string]tokens.Info, len(found)), Missing: make([]string, 0)}
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		if info, ok := found[a]; ok {
			resp.Data[a] = info
		} else {
			resp.Missing = append(resp.Missing, a)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
