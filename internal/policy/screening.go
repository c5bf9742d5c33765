package policy

import (
	"regexp"
	"strings"
)

// Screening flags visitor messages worth a closer look in the logs. It never
// blocks a message; the assistant still answers.
type Screening struct {
	Flagged bool
	Reason  string
}

var probePatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)\b(ignore|disregard|forget)\b.{0,40}\b(previous|prior|above|earlier)\b.{0,20}\b(instructions?|prompts?|rules?)\b`), "instruction_override"},
	{regexp.MustCompile(`(?i)\b(print|show|reveal|repeat|leak)\b.{0,40}\b(system prompt|instructions|hidden prompt)\b`), "prompt_extraction"},
	{regexp.MustCompile(`(?i)\b(print|show|reveal|leak)\b.{0,40}\b(api[_ -]?key|token|password|secret)s?\b`), "secret_probe"},
}

const MaxMessageRunes = 2000

func ScreenMessage(text string) Screening {
	in := strings.TrimSpace(text)
	if in == "" {
		return Screening{}
	}
	if len([]rune(in)) > MaxMessageRunes {
		return Screening{Flagged: true, Reason: "oversized"}
	}
	for _, p := range probePatterns {
		if p.re.MatchString(in) {
			return Screening{Flagged: true, Reason: p.reason}
		}
	}
	return Screening{}
}
