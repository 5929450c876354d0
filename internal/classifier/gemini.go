// internal/classifier/gemini.go
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

// Gemini classifies descriptions with a Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Classify(ctx context.Context, descriptions []string, categories []string) (map[string]string, error) {
	if len(descriptions) == 0 {
		return map[string]string{}, nil
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(descriptions, categories)), cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty response from model")
	}
	return parseResponse(raw, descriptions)
}

func buildPrompt(descriptions, categories []string) string {
	var b strings.Builder
	b.WriteString("Você classifica lançamentos de extrato bancário em categorias de finanças pessoais.\n\n")
	b.WriteString("Use SOMENTE uma das categorias abaixo (exatamente como escritas):\n")
	for _, c := range categories {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\nLançamentos:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	b.WriteString("\nResponda APENAS com um objeto JSON cujas chaves são os números dos lançamentos " +
		"(como string) e os valores são os nomes das categorias. " +
		"Omita lançamentos que não se encaixam em nenhuma categoria.\n")
	return b.String()
}

// parseResponse maps {"1": "Mercado", ...} back onto the descriptions.
func parseResponse(raw string, descriptions []string) (map[string]string, error) {
	var byIndex map[string]string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &byIndex); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w", err)
	}

	out := make(map[string]string, len(byIndex))
	for i, d := range descriptions {
		if label, ok := byIndex[fmt.Sprint(i+1)]; ok && strings.TrimSpace(label) != "" {
			out[d] = strings.TrimSpace(label)
		}
	}
	return out, nil
}

// cleanModelJSON strips Markdown fences and text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
