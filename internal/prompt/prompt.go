// Package prompt builds the backend-specific payloads sent to text-generation
// backends.
//
// Instruction-tuned sequence-to-sequence models take a single instruction
// string; chat-completion models take role-tagged messages. Payload is a
// closed union over the two shapes.
package prompt

import (
	"fmt"

	"github.com/nadzzz/toneshift/internal/language"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/tone"
)

// Roles used in chat payloads.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// chatContract is appended to the system message of every chat payload.
const chatContract = `You are a text-rewriting engine. Your ONLY job is to rewrite the user's input into a %s style.

Rules:
- Output ONLY the rewritten text
- Do NOT add any introduction like "Here is the rewritten text:"
- Do NOT add any explanation, notes, or quotation marks
- Transform the meaning into the requested style; do NOT translate literally
- Just output the result directly`

// Payload is the request body for a generation backend. It is implemented
// only by InstructionPayload and ChatPayload.
type Payload interface {
	payload()
}

// InstructionPayload is a single instruction string for sequence-to-sequence models.
type InstructionPayload struct {
	Prompt string
}

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPayload is an ordered message list: system first, user second.
type ChatPayload struct {
	Messages []Message
}

func (InstructionPayload) payload() {}
func (ChatPayload) payload()        {}

// System returns the content of the system message, if any.
func (c ChatPayload) System() string {
	for _, m := range c.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// User returns the content of the last user message.
func (c ChatPayload) User() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i].Content
		}
	}
	return ""
}

// Build returns the payload for req.Backend. It is a pure function of the
// request: identical requests yield identical payloads.
func Build(req message.Request) (Payload, error) {
	switch req.Backend {
	case message.BackendLocalSeq2Seq:
		return Instruction(req.Text, req.Tone, req.Language), nil
	case message.BackendRemoteChat:
		return Chat(req.Text, req.Tone, req.Language), nil
	default:
		return nil, fmt.Errorf("%w: %q", message.ErrUnknownBackend, req.Backend)
	}
}

// Instruction builds the single-string form.
func Instruction(text string, t tone.Tone, l language.Language) InstructionPayload {
	return InstructionPayload{
		Prompt: fmt.Sprintf("%s\n\nRewrite the following text to be %s: %s",
			language.Instruction(l, t), tone.Describe(t), text),
	}
}

// Chat builds the message form. The user message is the raw text, unmodified.
func Chat(text string, t tone.Tone, l language.Language) ChatPayload {
	system := language.Instruction(l, t) + "\n\n" + fmt.Sprintf(chatContract, tone.Describe(t))
	return ChatPayload{
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: text},
		},
	}
}
