package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// extractPrompt asks for the control-sheet columns as a flat JSON array with
// the candidate contract's keys.
const extractPrompt = "Extract from this delivery control sheet the columns " +
	"PLACA (plate), MOTORISTA (driver), AJUDANTE (helpers), ROTA (route), " +
	"ENTREGAS (delivery count), CARGA (load number) and VALOR (monetary value). " +
	"Return ONLY a JSON array of objects with the keys: " +
	"driver, plate, helpers, route, load, deliveries, value."

const defaultVisionModel = "gemini-3-flash-preview"

// Extractor converts a photographed control sheet into candidates through the
// Gemini generateContent endpoint. Calls are single-shot: no retry, no
// cancellation beyond the request context — a failure aborts the whole import
// and the user resubmits.
type Extractor struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewExtractor builds an extractor with the given API key. Model and endpoint
// fall back to defaults when empty; tests point baseURL at a local server.
func NewExtractor(apiKey, model, baseURL string) *Extractor {
	if model == "" {
		model = defaultVisionModel
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &Extractor{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
}

// Configured reports whether an API key is present. Without one the photo
// import surface is disabled rather than failing at call time.
func (e *Extractor) Configured() bool {
	return e != nil && e.apiKey != ""
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the image and parses the model's JSON reply into candidates.
func (e *Extractor) Extract(ctx context.Context, mimeType string, image []byte) ([]Candidate, error) {
	if !e.Configured() {
		return nil, errors.New("image extraction is not configured (missing API key)")
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: extractPrompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	if gr.Error != nil {
		return nil, fmt.Errorf("extraction service error: %s", gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("extraction service returned no content")
	}

	text := gr.Candidates[0].Content.Parts[0].Text
	var candidates []Candidate
	if err := json.Unmarshal([]byte(text), &candidates); err != nil {
		return nil, fmt.Errorf("malformed extraction payload: %w", err)
	}
	return candidates, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
