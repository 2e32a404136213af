// Servidor falso da API generateContent para testar o gateway localmente:
//
//	go run ./teste-validacao/fake-provider
//	PROVIDER_BASE_URL=http://localhost:8081 GOOGLE_API_KEY=x CHAT_MODEL_NAME=fake ... go run ./cmd/gateway
//
// FAKE_FAIL_EVERY=N faz cada N-ésima chamada responder 503 (exercita retries).
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"summarize-gateway/observability"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type request struct {
	SystemInstruction *content  `json:"systemInstruction"`
	Contents          []content `json:"contents"`
}

func main() {
	log := observability.NewLogger(getenv("LOG_LEVEL", "debug"), "console")
	failEvery, _ := strconv.Atoi(os.Getenv("FAKE_FAIL_EVERY"))
	delay, _ := time.ParseDuration(os.Getenv("FAKE_DELAY"))
	var calls int64

	http.HandleFunc("/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-goog-api-key") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": 401, "message": "missing api key"}})
			return
		}
		if failEvery > 0 && n%int64(failEvery) == 0 {
			log.Warn().Int64("call", n).Msg("simulated provider failure")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"code": 503, "message": "simulated overload"}})
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": err.Error()}})
			return
		}
		question := ""
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			question = req.Contents[0].Parts[0].Text
		}
		if delay > 0 {
			time.Sleep(delay)
		}

		log.Debug().Int64("call", n).Str("question", question).Msg("generateContent")
		text := fmt.Sprintf("Fake summary for %q (instruction: %d chars).", question, instructionLen(req))
		writeJSON(w, http.StatusOK, map[string]any{
			"candidates": []map[string]any{{
				"content":      content{Role: "model", Parts: []part{{Text: text}}},
				"finishReason": "STOP",
			}},
		})
	})

	addr := getenv("LISTEN_ADDR", ":8081")
	log.Info().Str("addr", addr).Msg("fake provider listening")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("fake provider error")
	}
}

func instructionLen(req request) int {
	if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) == 0 {
		return 0
	}
	return len(req.SystemInstruction.Parts[0].Text)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
