package stubs

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/Rajchodisetti/pm-router/internal/observ"
)

// ReasoningServer is a local stand-in for the generate endpoint so full
// pipeline runs work offline. It answers POST /v1/models/{model}:generate
// with deterministic JSON completions, alternating between the two response
// shapes the client accepts.
type ReasoningServer struct {
	mu       sync.Mutex
	requests int
}

func NewReasoningServer() *ReasoningServer {
	return &ReasoningServer{}
}

// Requests reports how many generate calls the stub has served.
func (s *ReasoningServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *ReasoningServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models/", s.handleGenerate)
	return mux
}

// Start serves the stub on an ephemeral localhost port and returns its
// base URL. Call stop to shut it down.
func (s *ReasoningServer) Start() (baseURL string, stop func(), err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: s.Handler()}
	go func() { _ = srv.Serve(ln) }()
	observ.Log("stub_reasoning_listen", map[string]any{"addr": ln.Addr().String()})
	return "http://" + ln.Addr().String(), func() { _ = srv.Close() }, nil
}

func (s *ReasoningServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests++
	n := s.requests
	s.mu.Unlock()

	completion := completionFor(req.Prompt)
	observ.Debug("stub_reasoning_generate", map[string]any{
		"model":   req.Model,
		"request": n,
	})

	w.Header().Set("Content-Type", "application/json")
	if n%2 == 0 {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": completion})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": completion}},
			},
		}},
	})
}

// completionFor mirrors the rule-based read already present in the prompt,
// wrapped in a markdown fence so the client's fence stripping is exercised.
func completionFor(prompt string) string {
	var payload []byte
	if strings.Contains(prompt, "chosen_strategy") {
		payload, _ = json.Marshal(map[string]any{
			"chosen_strategy": ruleStrategy(prompt),
			"risk_mode":       ruleRisk(prompt),
			"confidence":      0.7,
			"reason":          "stub model agrees with the rule-based read",
		})
	} else {
		payload, _ = json.Marshal(map[string]any{
			"pattern_name":    "stub_continuation",
			"confidence":      0.8,
			"typical_horizon": "3d",
			"comment":         "stub enrichment",
		})
	}
	return "```json\n" + string(payload) + "\n```"
}

func ruleStrategy(prompt string) string {
	for _, name := range []string{"strategy=sniper", "strategy=none"} {
		if strings.Contains(prompt, name) {
			return strings.TrimPrefix(name, "strategy=")
		}
	}
	return "ou_arb"
}

func ruleRisk(prompt string) string {
	for _, mode := range []string{"risk=defensive", "risk=aggressive"} {
		if strings.Contains(prompt, mode) {
			return strings.TrimPrefix(mode, "risk=")
		}
	}
	return "normal"
}
