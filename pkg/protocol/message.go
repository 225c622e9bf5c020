package protocol

import "encoding/json"

// Role identifies the author of a message.
type Role string

// Role values for message authorship.
const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// PartType discriminates the Part union.
type PartType string

// PartType values.
const (
	PartText       PartType = "text"
	PartToolUse    PartType = "tool_use"
	PartToolResult PartType = "tool_result"
)

// Part is a flat union representing one piece of message content.
// The Type field discriminates which fields are meaningful:
//   - text: Text
//   - tool_use: ToolUseID, ToolName, Input
//   - tool_result: ToolUseID, Text, IsError
//
// A tool_result part must reference a ToolUseID that occurred earlier in the
// same or a causally preceding message.
type Part struct {
	Type      PartType        `json:"type"`
	Text      string          `json:"text,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// NewTextPart creates a text part.
func NewTextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// NewToolUsePart creates a tool_use part.
func NewToolUsePart(id, name string, input json.RawMessage) Part {
	cp := make(json.RawMessage, len(input))
	copy(cp, input)
	return Part{Type: PartToolUse, ToolUseID: id, ToolName: name, Input: cp}
}

// NewToolResultPart creates a tool_result part referencing an earlier tool_use.
func NewToolResultPart(toolUseID, content string, isError bool) Part {
	return Part{Type: PartToolResult, ToolUseID: toolUseID, Text: content, IsError: isError}
}

// Message is an ordered sequence of parts with an author role.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage creates a user message with a single text part.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{NewTextPart(text)}}
}

// TextContent concatenates the text of all text parts, separated by newlines.
func (m Message) TextContent() string {
	var result string
	for _, p := range m.Parts {
		if p.Type == PartText && p.Text != "" {
			if result != "" {
				result += "\n"
			}
			result += p.Text
		}
	}
	return result
}
