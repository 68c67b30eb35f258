// Package tokencheck validates token counts reported by provider APIs and
// supplies estimates when a provider misreports them. Some upstreams
// (aggregators in particular) occasionally report zero input tokens, which
// would skew every derived statistic; this package is the single place
// where those counts are corrected or the benchmark is condemned.
//
// All functions are pure: no I/O, no clock, no globals.
package tokencheck

import (
	"fmt"
	"strings"
)

// MinInputTokens is the lowest input count considered plausible for the
// benchmark prompt. Anything below means the model never saw the prompt.
const MinInputTokens = 10

// EstimateTokens approximates the token count of text at roughly four
// characters per token. Returns at least 1 for non-empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// EstimateTokensWords approximates tokens from the word count (~1.3 tokens
// per English word). More conservative than EstimateTokens for prose.
func EstimateTokensWords(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(len(strings.Fields(text))) * 1.3)
}

// Result holds validated token counts plus provenance flags.
type Result struct {
	InputTokens     int
	OutputTokens    int
	InputEstimated  bool
	OutputEstimated bool
	Warnings        []string
	IsValid         bool
}

// Validate checks reported token counts and fills in estimates where the
// provider reported nothing usable. A nil pointer or a value <= 0 counts as
// unreported. prompt and response are the request/reply texts, used only
// for estimation; either may be empty.
func Validate(reportedInput, reportedOutput *int, prompt, response string) Result {
	res := Result{IsValid: true}

	res.InputTokens, res.InputEstimated = validateSide(reportedInput, prompt, "input", &res)
	res.OutputTokens, res.OutputEstimated = validateSide(reportedOutput, response, "output", &res)

	if res.InputTokens < MinInputTokens {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("input tokens (%d) below minimum threshold (%d)", res.InputTokens, MinInputTokens))
		res.IsValid = false
	}

	return res
}

func validateSide(reported *int, text, side string, res *Result) (tokens int, estimated bool) {
	if reported != nil && *reported > 0 {
		return *reported, false
	}
	was := 0
	if reported != nil {
		was = *reported
	}
	res.IsValid = false
	if text != "" {
		est := EstimateTokens(text)
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s tokens was %d, estimated %d from text", side, was, est))
		return est, true
	}
	res.Warnings = append(res.Warnings,
		fmt.Sprintf("%s tokens invalid and no text available for estimation", side))
	return 0, false
}

// ShouldFail reports whether a benchmark must be recorded as failed based
// on its validated token counts: either the model never processed the
// prompt (input below threshold) or both counts are zero.
func ShouldFail(res Result) bool {
	if res.InputTokens < MinInputTokens {
		return true
	}
	return res.InputTokens == 0 && res.OutputTokens == 0
}

// Summary renders the validation outcome for logs and error messages.
func Summary(res Result) string {
	if res.IsValid {
		return "token counts valid"
	}
	return strings.Join(res.Warnings, "; ")
}
