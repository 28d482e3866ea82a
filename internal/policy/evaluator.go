package policy

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const toolSystemExec = "system_exec"

var sandboxMitigations = []string{
	"run inside an isolated sandbox",
	"mount the workspace read-only",
	"disable network egress for the call",
}

// Evaluate returns a deterministic decision for a tool call. It never
// fails: malformed policy fragments (bad regexes, unparseable config)
// are skipped with no effect, and a decision is always produced.
//
// Precedence, strongest first: tool denylist, tool allowlist, exec
// checks, path checks, url checks, sandbox-only patterns, the elevated
// gate, then allow.
func Evaluate(call ToolCall, p Policy) Decision {
	p = withDefaults(p)
	toolName := strings.TrimSpace(call.ToolName)

	if containsFold(p.Tool.Denylist, toolName) {
		return deny("tool_denylist", "tool is on the deny list", toolName)
	}
	if len(p.Tool.Allowlist) > 0 && !containsFold(p.Tool.Allowlist, toolName) {
		return deny("tool_not_allowlisted", "tool is not on the allow list", toolName)
	}

	if toolName == toolSystemExec {
		if d, denied := evaluateExec(call, p.Exec); denied {
			return d
		}
	}

	if toolName == "system_read_file" || toolName == "system_write_file" {
		if d, denied := evaluatePath(call, p.Paths); denied {
			return d
		}
	}

	if strings.HasPrefix(toolName, "browser_") || toolName == toolSystemExec {
		if d, denied := evaluateURL(call, p.URLs); denied {
			return d
		}
	}

	for _, pattern := range p.Tool.SandboxOnly {
		if matchToolPattern(pattern, toolName) {
			return Decision{
				APIVersion: 1,
				Action:     ActionSandboxOnly,
				Reasons: []Reason{{
					ReasonCode: "sandbox_only",
					Detail:     "tool matches sandbox-only pattern " + pattern,
				}},
				SuggestedMitigations: append([]string(nil), sandboxMitigations...),
			}
		}
	}

	if isElevated(toolName) && p.Tool.ElevatedRequiresApproval {
		return Decision{
			APIVersion: 1,
			Action:     ActionNeedsApproval,
			Reasons: []Reason{{
				ReasonCode: "elevated_requires_approval",
				Detail:     "elevated tools require human approval",
			}},
		}
	}

	return Decision{
		APIVersion: 1,
		Action:     ActionAllow,
		Reasons:    []Reason{{ReasonCode: "default_allow"}},
	}
}

func evaluateExec(call ToolCall, exec *ExecPolicy) (Decision, bool) {
	cmd := baseCommand(argString(call, "cmd"))

	if cmd != "" {
		if containsFold(exec.DenyCmds, cmd) {
			return deny("exec_cmd_denied", "command is on the deny list", cmd), true
		}
		if len(exec.AllowCmds) > 0 && !containsFold(exec.AllowCmds, cmd) {
			return deny("exec_cmd_not_allowlisted", "command is not on the allow list", cmd), true
		}
	}

	joined := joinedCommand(call)
	for _, pattern := range exec.DenyPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue // malformed patterns have no effect
		}
		if m := re.FindString(joined); m != "" {
			return deny("exec_pattern_denied", "command matches deny pattern "+pattern, m), true
		}
	}

	if hasShellOperators(joined) {
		return deny("exec_shell_operators", "command contains shell operators", joined), true
	}
	return Decision{}, false
}

func evaluatePath(call ToolCall, paths *PathPolicy) (Decision, bool) {
	p := argString(call, "path")
	if p == "" {
		return Decision{}, false
	}
	for _, needle := range paths.Deny {
		if needle != "" && strings.Contains(p, needle) {
			return deny("path_denied", "path contains denied fragment "+needle, p), true
		}
	}
	return Decision{}, false
}

func evaluateURL(call ToolCall, urls *URLPolicy) (Decision, bool) {
	raw := argString(call, "url")
	if raw == "" {
		return Decision{}, false
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return deny("url_invalid", "url argument cannot be parsed", raw), true
	}

	scheme := strings.ToLower(parsed.Scheme)
	if containsFold(urls.DenySchemes, scheme) {
		return deny("url_scheme_denied", "scheme "+scheme+" is denied", raw), true
	}

	host := normalizeHost(parsed.Hostname())
	if matchesAnyDomain(host, urls.DenyDomains) {
		return deny("url_domain_denied", "host "+host+" is denied", raw), true
	}
	if len(urls.AllowDomains) > 0 && !matchesAnyDomain(host, urls.AllowDomains) {
		return deny("url_domain_not_allowlisted", "host "+host+" is not on the allow list", raw), true
	}
	return Decision{}, false
}

// isElevated marks tools that reach outside the agent sandbox.
func isElevated(toolName string) bool {
	return strings.HasPrefix(toolName, "system_") ||
		strings.HasPrefix(toolName, "browser_") ||
		toolName == "workflow_tool"
}

// matchToolPattern supports exact names and a single trailing '*' as a
// prefix match.
func matchToolPattern(pattern, toolName string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(toolName, pattern[:len(pattern)-1])
	}
	return strings.EqualFold(pattern, toolName)
}

// hasShellOperators is a heuristic for compound shell commands: any
// pipe, separator, redirection, backtick, or command substitution.
func hasShellOperators(s string) bool {
	if strings.ContainsAny(s, "|;&<>`") {
		return true
	}
	return strings.Contains(s, "$(")
}

// baseCommand reduces a command to its basename for list comparisons.
func baseCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(cmd, `\`, "/"))
}

// joinedCommand flattens cmd plus its args into one string for
// pattern checks.
func joinedCommand(call ToolCall) string {
	parts := []string{argString(call, "cmd")}
	parts = append(parts, argStrings(call, "args")...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// argString reads a string argument defensively: missing or
// non-string values read as empty.
func argString(call ToolCall, key string) string {
	if call.Args == nil {
		return ""
	}
	if v, ok := call.Args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// argStrings reads a string-slice argument defensively, tolerating
// []any from decoded JSON.
func argStrings(call ToolCall, key string) []string {
	if call.Args == nil {
		return nil
	}
	switch v := call.Args[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// matchesAnyDomain reports an exact or dot-suffix domain match.
func matchesAnyDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = normalizeHost(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func deny(reasonCode, detail, evidence string) Decision {
	return Decision{
		APIVersion: 1,
		Action:     ActionDeny,
		Reasons: []Reason{{
			ReasonCode: reasonCode,
			Detail:     detail,
			Evidence:   evidence,
		}},
	}
}
