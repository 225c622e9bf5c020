// Package redact masks secret material before it reaches logs or the audit
// trail. Tool arguments routinely carry tokens and keys; the gateway must
// never persist them in clear text.
package redact

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

// Placeholder is the replacement string for redacted secrets.
const Placeholder = "***REDACTED***"

// secretKeyPattern matches JSON keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|passwd|api_?key|credential|authorization)`)

// Redactor replaces secret values in strings and JSON documents. It matches
// known token formats by regex and exact values registered at runtime.
// Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// New creates a Redactor pre-loaded with patterns for common API key and
// token formats.
func New() *Redactor {
	return &Redactor{patterns: defaultPatterns()}
}

// AddLiteral registers an exact secret value to mask on sight. Empty
// strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact masks every known pattern and literal in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, Placeholder)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, Placeholder)
		}
	}
	return s
}

// RedactJSON masks a JSON document: values under secret-named keys are
// replaced wholesale, and remaining string values go through Redact. A
// document that does not parse is redacted as plain text.
func (r *Redactor) RedactJSON(raw json.RawMessage) string {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return r.Redact(string(raw))
	}

	masked := r.redactValue(doc, false)
	out, err := json.Marshal(masked)
	if err != nil {
		return r.Redact(string(raw))
	}
	return string(out)
}

// redactValue walks a decoded JSON value. underSecretKey forces string
// replacement regardless of content.
func (r *Redactor) redactValue(v any, underSecretKey bool) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.redactValue(item, underSecretKey || secretKeyPattern.MatchString(k))
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.redactValue(item, underSecretKey)
		}
		return out
	case string:
		if underSecretKey && val != "" {
			return Placeholder
		}
		return r.Redact(val)
	default:
		return v
	}
}

// defaultPatterns covers common API key and token formats.
func defaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic keys first, the generic sk- pattern would split them.
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
		regexp.MustCompile(`xox[bp]-[0-9]+-[a-zA-Z0-9\-]+`),
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]{16,}`),
	}
}
