package syllabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"quiz-bot/api/internal/util"
)

const llmInstruction = `You extract an exam syllabus from a test description.
Return only JSON of the form {"Physics": [...], "Chemistry": [...], "Botany": [...], "Zoology": [...]}.
Each list holds the topic names stated for that subject, in the order given. Use [] when a subject is not mentioned.
Do not invent topics.`

// Generator returns the model's text answer for a prompt.
type Generator func(ctx context.Context, prompt string) (string, error)

// LLM asks Gemini to structure free-text descriptions the regex windows could not read.
type LLM struct {
	APIKey   string
	Model    string
	Generate Generator
}

func NewLLM(apiKey, model string) *LLM {
	l := &LLM{APIKey: strings.TrimSpace(apiKey), Model: strings.TrimSpace(model)}
	l.Generate = l.gemini
	return l
}

func (*LLM) Source() Source { return SourceLLM }

func (l *LLM) Extract(ctx context.Context, in Input) (*Syllabus, error) {
	texts := in.Texts()
	if len(texts) == 0 {
		return New(SourceLLM), nil
	}
	txt, err := l.Generate(ctx, strings.Join(texts, "\n\n"))
	if err != nil {
		return nil, err
	}
	var parsed map[string][]string
	if err := json.Unmarshal([]byte(util.StripCodeFences(txt)), &parsed); err != nil {
		return nil, fmt.Errorf("gemini syllabus: bad JSON: %w", err)
	}
	s := New(SourceLLM)
	for _, sub := range Subjects {
		for _, t := range parsed[string(sub)] {
			s.Add(sub, CleanTopics(t))
		}
	}
	return s, nil
}

func (l *LLM) gemini(ctx context.Context, prompt string) (string, error) {
	if l.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(l.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(l.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(llmInstruction)}}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini syllabus: empty response")
	}
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(f float32) *float32 { return &f }
