// Package assistant talks to a hosted chat model on behalf of a conversation.
package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"threadshelf/internal/logging"
	"threadshelf/internal/model"
)

const DefaultModel = "gemini-2.5-flash"

const DefaultSystemInstruction = "You are a capable project-management assistant. " +
	"Understand the user's request and answer clearly and concisely."

var (
	ErrRemoteCommunication = errors.New("failed to communicate with the AI model")
	ErrMissingAPIKey       = errors.New("missing Gemini API key (set GEMINI_API_KEY or gemini.apiKey)")
)

// RemoteError wraps any failure talking to the model. Callers match it with
// errors.Is(err, ErrRemoteCommunication).
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return ErrRemoteCommunication.Error()
	}
	return ErrRemoteCommunication.Error() + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteCommunication }

type Client interface {
	GetChatResponse(ctx context.Context, history []model.Message, newMessage string) (string, error)
}

// generator is the slice of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Logger            *log.Logger
}

type Gemini struct {
	models      generator
	model       string
	instruction string
	log         *log.Logger
}

func NewGemini(ctx context.Context, opt Options) (*Gemini, error) {
	key := strings.TrimSpace(opt.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &RemoteError{Err: err}
	}
	return newGemini(c.Models, opt), nil
}

func newGemini(g generator, opt Options) *Gemini {
	m := strings.TrimSpace(opt.Model)
	if m == "" {
		m = DefaultModel
	}
	instr := strings.TrimSpace(opt.SystemInstruction)
	if instr == "" {
		instr = DefaultSystemInstruction
	}
	l := opt.Logger
	if l == nil {
		l = logging.Discard()
	}
	return &Gemini{models: g, model: m, instruction: instr, log: l}
}

func (g *Gemini) Model() string { return g.model }

// GetChatResponse sends history plus newMessage as one request. There are no
// retries; every failure comes back as a *RemoteError.
func (g *Gemini) GetChatResponse(ctx context.Context, history []model.Message, newMessage string) (string, error) {
	contents := Contents(history, newMessage)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.instruction, genai.RoleUser),
	}

	g.log.Debug("gemini request", "model", g.model, "turns", len(contents))
	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.log.Error("gemini call failed", "err", err)
		return "", &RemoteError{Err: err}
	}
	if resp == nil {
		return "", &RemoteError{Err: errors.New("empty response")}
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &RemoteError{Err: errors.New("empty response")}
	}
	return text, nil
}

// Contents maps the transcript to model turns. Roles other than model are sent as user.
func Contents(history []model.Message, newMessage string) []*genai.Content {
	out := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == model.RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	out = append(out, genai.NewContentFromText(newMessage, genai.RoleUser))
	return out
}
