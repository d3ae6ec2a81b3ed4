// Package assistant answers candidate questions about the recruitment
// process through a hosted language model.
package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-2.5-flash"

	ReplyUnavailable = "AI Service is currently unavailable. Please check back later."
	ReplyFailed      = "I am experiencing technical difficulties. Please try again later."
	ReplyEmpty       = "I am unable to provide an answer at this moment."
)

const systemInstruction = `You are the Official AI Recruitment Assistant for the Rwanda National Police (RNP).
Your role is to help aspiring candidates understand the recruitment process.

Key Information to know:
1. Core Values: Integrity, Service, Patriotism, Professionalism.
2. Requirements for Officers:
   - Must be of Rwandan Nationality.
   - Age: 18-25 for Basic Course, up to 30 for specialized officers.
   - Education: Minimum High School Diploma (A2) for Constables, Bachelor's (A0) for Officer Cadets.
   - Physical: Healthy, fit, minimum height 1.70m (Male), 1.65m (Female).
   - No criminal record.
3. Process: Application -> Shortlist -> Physical Test -> Written Exam -> Medical -> Training.
4. Colors: Dark Blue and Gold.

Tone: Professional, Encouraging, Strict on requirements, Respectful.
If asked about specific application status, tell them to use the "Check Status" page.
Answer briefly and clearly.`

// Turn is one earlier message in the conversation.
type Turn struct {
	Role  string     `json:"role"`
	Parts []TurnPart `json:"parts"`
}

type TurnPart struct {
	Text string `json:"text"`
}

// Assistant replies to a message given the prior conversation. It never
// fails: provider problems are turned into a fixed apology.
type Assistant interface {
	Reply(ctx context.Context, history []Turn, message string) string
}

type sendFunc func(ctx context.Context, history []*genai.Content, message string) (string, error)

// Gemini is the Assistant backed by Google's Gemini models. Each reply is
// a fresh chat seeded with the caller's history.
type Gemini struct {
	client *genai.Client
	send   sendFunc
	logger *slog.Logger
	model  string
}

type Option func(*Gemini)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gemini) {
		g.logger = logger
	}
}

func WithModel(name string) Option {
	return func(g *Gemini) {
		if name != "" {
			g.model = name
		}
	}
}

// NewGemini connects to the Gemini API. Without an API key the assistant is
// still usable and answers every message with ReplyUnavailable.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	g := &Gemini{
		logger: slog.Default(),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(g.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))

	g.client = client
	g.send = func(ctx context.Context, history []*genai.Content, message string) (string, error) {
		cs := model.StartChat()
		cs.History = history
		resp, err := cs.SendMessage(ctx, genai.Text(message))
		if err != nil {
			return "", err
		}
		return responseText(resp), nil
	}
	return g, nil
}

func (g *Gemini) Reply(ctx context.Context, history []Turn, message string) string {
	if g.send == nil {
		return ReplyUnavailable
	}
	text, err := g.send(ctx, toContents(history), message)
	if err != nil {
		g.logger.ErrorContext(ctx, "assistant request failed",
			"model", g.model,
			"error", err,
		)
		return ReplyFailed
	}
	if text == "" {
		return ReplyEmpty
	}
	return text
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// toContents keeps the model's own turns and treats everything else as the
// user speaking.
func toContents(history []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		parts := make([]genai.Part, 0, len(t.Parts))
		for _, p := range t.Parts {
			if p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
		if len(parts) == 0 {
			continue
		}
		role := "user"
		if strings.EqualFold(t.Role, "model") {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
