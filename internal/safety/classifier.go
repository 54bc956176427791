// Package safety implements the deterministic, regex-based command
// classifier: a fixed set of regexes evaluated in a fixed order. It never
// calls a model: the evaluation order below is auditable and must not be
// reordered.
package safety

import "strings"

// Classify tiers a shell command string. It is a pure function: the same
// input always produces the same output.
func Classify(command string) Tier {
	trimmed := strings.TrimSpace(command)

	// Step 1: blocklist pass. Any TIER-3 match anywhere wins outright,
	// regardless of other patterns.
	for _, p := range tier3Patterns {
		if p.re.MatchString(trimmed) {
			return BLOCKED
		}
	}

	// Step 2: allowlist pass. The command must start with an allowlisted
	// head AND carry no TIER-2 signal anywhere.
	headMatches := false
	for _, p := range tier1HeadPatterns {
		if p.re.MatchString(trimmed) {
			headMatches = true
			break
		}
	}
	if headMatches && !unquotedPipeRe.MatchString(trimmed) && !anyTier2Match(trimmed) {
		return AUTO
	}

	// Step 3: signal pass.
	if anyTier2Match(trimmed) {
		return CONFIRM
	}

	// Step 4: default, fail-closed toward human review.
	return CONFIRM
}

func anyTier2Match(command string) bool {
	for _, p := range tier2Patterns {
		if p.re.MatchString(command) {
			return true
		}
	}
	return false
}

// MatchedBlockPattern returns the name of the TIER-3 pattern that caused a
// BLOCKED verdict, for audit logging. Returns ("", false) if the command is
// not blocked, or was blocked for a reason other than a TIER-3 pattern.
func MatchedBlockPattern(command string) (string, bool) {
	trimmed := strings.TrimSpace(command)
	for _, p := range tier3Patterns {
		if p.re.MatchString(trimmed) {
			return p.name, true
		}
	}
	return "", false
}

// Downgrade applies the context-sensitive downgrade: in a headless
// execution context (no user available to confirm), CONFIRM is promoted
// to BLOCKED.
func Downgrade(tier Tier, headless bool) Tier {
	if headless && tier == CONFIRM {
		return BLOCKED
	}
	return tier
}
