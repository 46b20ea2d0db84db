// Package redact masks credentials in node arguments, results and log
// lines before they reach the terminal.
package redact

import (
	"regexp"
	"strings"
)

// Mask replaces a secret value.
const Mask = "***REDACTED***"

// Kind names a family of credentials.
type Kind string

// Kinds detected by the default redactor
const (
	KindAWSKey      Kind = "aws_access_key"
	KindGitHubToken Kind = "github_token"
	KindSlackToken  Kind = "slack_token"
	KindPrivateKey  Kind = "private_key"
	KindAPIKey      Kind = "api_key"
	KindBearer      Kind = "bearer_token"
	KindJWT         Kind = "jwt_token"
	KindDatabaseURL Kind = "database_url"
)

// Pattern detects one kind of credential. When the expression has a
// capture group only the group is masked.
type Pattern struct {
	Kind    Kind
	Pattern *regexp.Regexp
}

// Redactor masks secrets in strings and argument maps.
type Redactor struct {
	patterns []Pattern

	// keys whose values are always masked, lower-case
	keys []string
}

// New returns a redactor with the default patterns and sensitive keys.
func New() *Redactor {
	return &Redactor{
		patterns: []Pattern{
			{KindAWSKey, regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
			{KindGitHubToken, regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
			{KindSlackToken, regexp.MustCompile(`xox[baprs]-[0-9]{10,12}-[0-9]{10,12}-[A-Za-z0-9]{24,}`)},
			{KindPrivateKey, regexp.MustCompile(`-----BEGIN\s+(?:RSA|DSA|EC|OPENSSH|PGP)?\s*PRIVATE KEY-----[\s\S]*?(?:-----END[^-]*-----|$)`)},
			{KindAPIKey, regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`)},
			{KindBearer, regexp.MustCompile(`(?i)bearer\s+([A-Za-z0-9._\-+/=]{16,})`)},
			{KindJWT, regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`)},
			{KindDatabaseURL, regexp.MustCompile(`(?i)(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp)://[^\s:'"/@]+:([^\s'"@]+)@`)},
		},
		keys: []string{"password", "passwd", "secret", "token", "api_key", "apikey", "authorization", "credentials", "private_key"},
	}
}

// AddKey marks argument keys named key as sensitive.
func (r *Redactor) AddKey(key string) {
	r.keys = append(r.keys, strings.ReplaceAll(strings.ToLower(key), "-", "_"))
}

// String masks every credential found in s.
func (r *Redactor) String(s string) string {
	for _, p := range r.patterns {
		if p.Pattern.NumSubexp() == 0 {
			s = p.Pattern.ReplaceAllString(s, Mask)
			continue
		}
		s = p.Pattern.ReplaceAllStringFunc(s, func(m string) string {
			sub := p.Pattern.FindStringSubmatchIndex(m)
			if len(sub) < 4 || sub[2] < 0 {
				return Mask
			}
			return m[:sub[2]] + Mask + m[sub[3]:]
		})
	}
	return s
}

// Args returns a copy of args with sensitive keys and embedded
// credentials masked. args itself is never modified.
func (r *Redactor) Args(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if r.sensitive(k) {
			out[k] = Mask
			continue
		}
		out[k] = r.value(v)
	}
	return out
}

func (r *Redactor) value(v any) any {
	switch t := v.(type) {
	case string:
		return r.String(t)
	case map[string]any:
		return r.Args(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = r.value(e)
		}
		return out
	default:
		return v
	}
}

// sensitive matches whole words of snake- or kebab-case keys, so
// "access_token" is masked and "max_tokens" is not.
func (r *Redactor) sensitive(key string) bool {
	key = strings.ReplaceAll(strings.ToLower(key), "-", "_")
	for _, k := range r.keys {
		if key == k || strings.HasSuffix(key, "_"+k) || strings.HasPrefix(key, k+"_") {
			return true
		}
	}
	return false
}

var defaultRedactor = New()

// String masks credentials in s with the default redactor.
func String(s string) string { return defaultRedactor.String(s) }

// Args masks args with the default redactor.
func Args(args map[string]any) map[string]any { return defaultRedactor.Args(args) }
