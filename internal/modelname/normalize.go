// Package modelname normalizes raw model identifiers from provider APIs
// into a single canonical form, so that the same model benchmarked
// through different providers lands on one database row.
//
// Examples:
//
//	accounts/fireworks/models/llama-v3p3-70b-instruct → llama-3.3-70b-instruct
//	models/gemini-2.5-flash                           → gemini-2.5-flash
//	meta-llama/Llama-3.3-70B-Instruct                 → llama-3.3-70b-instruct
package modelname

import (
	"regexp"
	"strings"
)

// prefixPatterns are provider path prefixes stripped before any other
// rewriting. Order matters: the specific Fireworks/Google prefixes must be
// tried before the generic single-segment rule.
var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^accounts/fireworks/models/`),
	regexp.MustCompile(`^models/`),
	regexp.MustCompile(`^[^/]+/`),
}

// versionTokens maps Fireworks-style version tokens to dotted versions.
var versionTokens = [][2]string{
	{"v3p3", "3.3"},
	{"v3p2", "3.2"},
	{"v3p1", "3.1"},
	{"v2p5", "2.5"},
	{"v2p0", "2.0"},
	{"v1p5", "1.5"},
}

var (
	familyRe   = regexp.MustCompile(`(?i)(llama|mixtral|mistral|qwen)`)
	dashRunRe  = regexp.MustCompile(`-+`)
	sizeMidRe  = regexp.MustCompile(`(\d+)B-`)
	sizeTailRe = regexp.MustCompile(`(\d+)B$`)
)

// Normalize converts a raw model name from a provider API into canonical
// form. It is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	name := strings.TrimSpace(raw)

	// Strip one leading path segment.
	for _, re := range prefixPatterns {
		if stripped := re.ReplaceAllString(name, ""); stripped != name {
			name = stripped
			break
		}
	}

	for _, vt := range versionTokens {
		name = strings.ReplaceAll(name, vt[0], vt[1])
	}

	name = familyRe.ReplaceAllStringFunc(name, strings.ToLower)

	name = strings.ReplaceAll(name, "-Instruct", "-instruct")
	name = strings.ReplaceAll(name, "_instruct", "-instruct")

	name = strings.ReplaceAll(name, "_", "-")
	name = dashRunRe.ReplaceAllString(name, "-")

	// 70B → 70b, also mid-name (70B-Instruct).
	name = sizeMidRe.ReplaceAllString(name, "${1}b-")
	name = sizeTailRe.ReplaceAllString(name, "${1}b")

	return strings.TrimSpace(name)
}
