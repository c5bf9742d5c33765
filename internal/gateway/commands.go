package gateway

import (
	"regexp"
	"strings"
)

// Command describes one entry of the reserved command surface shown to users.
type Command struct {
	Trigger     string `json:"trigger"`
	Description string `json:"description"`
}

// CommandPolicy decides which inputs short-circuit the collaborator.
type CommandPolicy struct {
	Help     string
	Reset    string
	HelpText string
	NameExpr *regexp.Regexp
	Surface  []Command
}

// defaultNameExpr finds "my name is X" anywhere in a message. X is up to three
// words and must be followed by punctuation or the end of the message.
var defaultNameExpr = regexp.MustCompile(`(?i)\bmy name is\s+([\p{L}][\p{L}'\-]*(?:\s+[\p{L}][\p{L}'\-]*){0,2})\s*(?:[.,!?;]|$)`)

func DefaultCommandPolicy() CommandPolicy {
	surface := []Command{
		{Trigger: "help", Description: "Show what I can do."},
		{Trigger: "reset", Description: "Clear our conversation and start over."},
		{Trigger: "my name is ...", Description: "Tell me your name so I can use it."},
	}
	return CommandPolicy{
		Help:     "help",
		Reset:    "reset",
		NameExpr: defaultNameExpr,
		Surface:  surface,
		HelpText: strings.Join([]string{
			"Here's what I can do:",
			"- Tell you about skills, experience and projects 🚀",
			"- Share contact details and how to get in touch 📬",
			"- Tell you the current time or date ⏰",
			"- Remember your name: just say \"my name is ...\"",
			"- Type \"reset\" to clear our conversation",
		}, "\n"),
	}
}

func (p CommandPolicy) IsHelp(message string) bool {
	return p.Help != "" && strings.EqualFold(strings.TrimSpace(message), p.Help)
}

func (p CommandPolicy) IsReset(message string) bool {
	return p.Reset != "" && strings.EqualFold(strings.TrimSpace(message), p.Reset)
}

// ExtractName returns the name stated by a "my name is X" message.
func (p CommandPolicy) ExtractName(message string) (string, bool) {
	if p.NameExpr == nil {
		return "", false
	}
	m := p.NameExpr.FindStringSubmatch(strings.TrimSpace(message))
	if len(m) < 2 {
		return "", false
	}
	name := strings.Join(strings.Fields(m[1]), " ")
	if name == "" {
		return "", false
	}
	return name, true
}
