// Package advisory implements the screen advisory loop: a screen frame is
// captured on a fixed interval, classified by the provider gateway, and
// surfaced as an actionable suggestion unless suppressed.
package advisory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VerdictType classifies what the model found on screen.
type VerdictType string

const (
	TypeCode       VerdictType = "code"
	TypeDefinition VerdictType = "definition"
	TypeError      VerdictType = "error"
	TypeQuestion   VerdictType = "question"
	TypeGeneral    VerdictType = "general"
)

// Verdict is the strict JSON document the classification prompt demands.
type Verdict struct {
	Type       VerdictType `json:"type"`
	Content    string      `json:"content"`
	Suggestion string      `json:"suggestion"`
	Confidence float64     `json:"confidence"`
}

// ConfidenceFloor is the exclusive lower bound for surfacing a verdict.
const ConfidenceFloor = 0.3

// Surfaceable reports whether a verdict clears the confidence floor and
// carries a suggestion. Content-dedupe is applied by the loop, not here.
func (v Verdict) Surfaceable() bool {
	return v.Confidence > ConfidenceFloor && v.Suggestion != ""
}

// ClassificationPrompt is sent alongside the captured frame. The model must
// answer with the bare JSON document and nothing else.
const ClassificationPrompt = `Analyze this screen capture and identify if there's anything I can help with.

Look for:
1. Code snippets - offer to explain, fix bugs, or provide complete solutions
2. Technical terms (like "encapsulation", "polymorphism") - offer definitions
3. Error messages - offer solutions
4. Questions visible on screen - offer to answer
5. Complex diagrams or concepts - offer to explain

Respond ONLY in this exact JSON format (no markdown, no extra text):
{
    "type": "code|definition|error|question|general",
    "content": "brief description of what you found",
    "suggestion": "short actionable suggestion (max 60 chars)",
    "confidence": 0.0-1.0
}

If nothing actionable found, return:
{
    "type": "general",
    "content": "nothing detected",
    "suggestion": "",
    "confidence": 0
}`

// ParseVerdict decodes a classification reply. Models tend to wrap the
// document in a fenced code block despite the prompt, so fences are stripped
// before decoding.
func ParseVerdict(reply string) (Verdict, error) {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var v Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}

// Action identifies a follow-up the user can take on a surfaced verdict.
type Action string

const (
	ActionExplain        Action = "explain"
	ActionFix            Action = "fix"
	ActionImprove        Action = "improve"
	ActionDefine         Action = "define"
	ActionExplainExample Action = "explain-example"
	ActionDiagnose       Action = "diagnose"
	ActionSolve          Action = "solve"
	ActionAnswer         Action = "answer"
	ActionDetailed       Action = "detailed"
)

// Label returns the user-facing name of an action.
func (a Action) Label() string {
	switch a {
	case ActionExplain:
		return "Explain Code"
	case ActionFix:
		return "Fix Issues"
	case ActionImprove:
		return "Improve Code"
	case ActionDefine:
		return "Define Term"
	case ActionExplainExample:
		return "Explain with Example"
	case ActionDiagnose:
		return "Diagnose Error"
	case ActionSolve:
		return "Provide Solution"
	case ActionAnswer:
		return "Answer Question"
	case ActionDetailed:
		return "Detailed Explanation"
	default:
		return string(a)
	}
}

// ActionsFor returns the follow-up actions offered for a verdict type. A
// general verdict offers none and is never surfaced with buttons.
func ActionsFor(t VerdictType) []Action {
	switch t {
	case TypeCode:
		return []Action{ActionExplain, ActionFix, ActionImprove}
	case TypeDefinition:
		return []Action{ActionDefine, ActionExplainExample}
	case TypeError:
		return []Action{ActionDiagnose, ActionSolve}
	case TypeQuestion:
		return []Action{ActionAnswer, ActionDetailed}
	default:
		return nil
	}
}

// PromptFor synthesizes the chat prompt an action sends, embedding the
// verdict's content.
func PromptFor(a Action, content string) string {
	switch a {
	case ActionExplain:
		return fmt.Sprintf("I see this code on my screen: %q. Please explain what it does in simple terms.", content)
	case ActionFix:
		return fmt.Sprintf("I have this code with potential issues: %q. Please identify and fix any bugs or problems.", content)
	case ActionImprove:
		return fmt.Sprintf("Here's some code: %q. How can I improve it? Suggest optimizations and best practices.", content)
	case ActionDefine:
		return fmt.Sprintf("I see the term %q on my screen. Please define it clearly.", content)
	case ActionExplainExample:
		return fmt.Sprintf("Explain %q with a practical example.", content)
	case ActionDiagnose:
		return fmt.Sprintf("I'm seeing this error: %q. What's causing it?", content)
	case ActionSolve:
		return fmt.Sprintf("I have this error: %q. How do I fix it? Provide a complete solution.", content)
	case ActionAnswer:
		return fmt.Sprintf("I see this question: %q. Please answer it.", content)
	case ActionDetailed:
		return fmt.Sprintf("Regarding: %q. Please provide a detailed, comprehensive explanation.", content)
	default:
		return content
	}
}
