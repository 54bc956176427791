package safety

import "regexp"

// blockPattern pairs a compiled regex with a human label for audit trails.
type blockPattern struct {
	name string
	re   *regexp.Regexp
}

func compileAll(specs map[string]string) []blockPattern {
	out := make([]blockPattern, 0, len(specs))
	for name, pattern := range specs {
		out = append(out, blockPattern{name: name, re: regexp.MustCompile(pattern)})
	}
	return out
}

// tier3Patterns: any match anywhere in the command is an unconditional
// BLOCKED, evaluated before anything else.
var tier3Patterns = compileAll(map[string]string{
	"recursive_delete_combined": `(?i)\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f[a-zA-Z]*|-[a-zA-Z]*f[a-zA-Z]*r[a-zA-Z]*)\b`,
	"privilege_escalation":      `(?i)\b(sudo|doas)\b|\bsu\s+-`,
	"pipe_to_shell":             `(?i)\b(curl|wget)\b[^|;\n]*\|\s*(bash|sh|zsh|fish|python3?|perl|ruby)\b`,
	"nc_pipe_to_shell":          `(?i)\bnc\b[^|;\n]*\|\s*(sh|bash)\b`,
	"base64_pipe_to_shell":      `(?i)\bbase64\b[^|;\n]*(-d|--decode)[^|;\n]*\|\s*(sh|bash)\b`,
	"substitution_destructive":  "(?i)(\\$\\([^)]*\\b(rm|dd|mkfs|sudo)\\b[^)]*\\)|`[^`]*\\b(rm|dd|mkfs|sudo)\\b[^`]*`)",
	"chain_to_destructive":      `(?i)[;&|]\s*(rm\s+-[a-zA-Z]*r|sudo\b|dd\s+if=|mkfs\b|reboot\b|shutdown\b|:\(\)\s*\{)`,
	"protected_path_write":      `(?i)>{1,2}\s*(/etc/\S*|/dev/sd[a-z]\d*|/boot/\S*)`,
	"protected_file_write":      `(?i)>{1,2}\s*/etc/(passwd|shadow|sudoers)\b`,
	"fork_bomb":                 `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
	"block_device_zero":         `(?i)\bdd\b[^|\n]*\bif=/dev/zero\b`,
	"block_device_tools":        `(?i)\b(mkfs(\.\w+)?|fdisk|parted)\b`,
	"chmod_system_root":         `(?i)\bchmod\b\s+-?R?\s*[0-7]{3,4}\s+/(\s|$|etc\b|usr\b|bin\b|boot\b)`,
	"sensitive_ssh_key":         `(?i)\.ssh/id_(rsa|dsa|ecdsa|ed25519)\b`,
	"sensitive_env_file":        `(?i)(^|[\s/])\.env\b`,
})

// tier1HeadPatterns: the command must match one of these from the start to
// be eligible for AUTO. Matching is anchored at the beginning of the
// (trimmed) command.
var tier1HeadPatterns = compileAll(map[string]string{
	"read_only_utils":     `(?i)^(ls|cat|head|tail|grep|find|ps|df|du|free|uptime|uname|echo|whoami|pwd|env|which|wc)\b`,
	"git_read_only":       `(?i)^git\s+(status|log|diff|show|branch|remote(\s+-v)?|describe|blame|rev-parse|ls-files)\b`,
	"docker_read_only":    `(?i)^docker\s+(ps|images|logs|inspect|version|info)\b`,
	"systemctl_read_only": `(?i)^systemctl\s+(status|list-units|list-unit-files|is-active|is-enabled)\b`,
	"ping":                `(?i)^ping\b`,
	"dns_lookup":          `(?i)^(dig|nslookup|host)\b`,
	"curl_wget_no_pipe":   `(?i)^(curl|wget)\b`,
	"version_probe":       `(?i)--version\b`,
})

// tier2Patterns: signal a mutating-but-not-catastrophic operation, evaluated
// after the allowlist pass fails to clear the command.
var tier2Patterns = compileAll(map[string]string{
	"rm":                 `(?i)\brm\b`,
	"mv":                 `(?i)\bmv\b`,
	"mkdir":              `(?i)\bmkdir\b`,
	"touch":              `(?i)\btouch\b`,
	"chmod":              `(?i)\bchmod\b`,
	"chown":              `(?i)\bchown\b`,
	"kill":               `(?i)\bkill(all)?\b`,
	"package_installer":  `(?i)\b(apt(-get)?|yum|dnf|brew|pip3?|npm|yarn|pnpm)\s+(install|remove|uninstall|upgrade)\b`,
	"git_mutating":       `(?i)\bgit\s+(commit|push|reset|merge|rebase|checkout|clean|tag|cherry-pick|stash\s+(pop|drop))\b`,
	"docker_mutating":    `(?i)\bdocker\s+(run|rm|rmi|stop|kill|build|exec|pull|push)\b`,
	"systemctl_mutating": `(?i)\bsystemctl\s+(start|stop|restart|reload|enable|disable|mask)\b`,
})

// unquotedPipeRe flags a curl/wget invocation piping its output anywhere,
// which disqualifies it from the tier-1 "curl/wget without an unquoted
// pipe" allowance even when it isn't piping into a shell interpreter.
var unquotedPipeRe = regexp.MustCompile(`(?i)\b(curl|wget)\b[^'"\n]*\|`)
