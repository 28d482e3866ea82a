package policy

// Default deny lists applied when the corresponding policy section is
// absent or empty.
var (
	defaultPathDeny = []string{
		".ssh", "id_rsa", "keychain", "Keychains", "Cookies",
		".env", "AWS_SECRET_ACCESS_KEY", "GITHUB_TOKEN",
	}
	defaultURLDenySchemes = []string{"file", "data", "javascript"}
	defaultURLDenyDomains = []string{"localhost", "127.0.0.1", "169.254.169.254"}
)

// Default install thresholds for the untrusted and trusted stances.
const (
	UntrustedApproveAt = 30
	UntrustedDenyAt    = 60
	TrustedApproveAt   = 40
	TrustedDenyAt      = 80
)

// Default returns the built-in policy used when no policy file is
// given.
func Default() Policy {
	return Policy{
		APIVersion: 1,
		Tool: &ToolPolicy{
			ElevatedRequiresApproval: true,
		},
		Exec: &ExecPolicy{
			DenyCmds: []string{"rm", "dd", "mkfs", "shutdown", "reboot", "launchctl", "systemctl"},
		},
		Paths: &PathPolicy{
			Deny: append([]string(nil), defaultPathDeny...),
		},
		URLs: &URLPolicy{
			DenySchemes: append([]string(nil), defaultURLDenySchemes...),
			DenyDomains: append([]string(nil), defaultURLDenyDomains...),
		},
		Thresholds: &ThresholdsPolicy{
			ScanApproveAt: UntrustedApproveAt,
			ScanDenyAt:    UntrustedDenyAt,
		},
	}
}

// withDefaults injects the default deny lists into a policy whose
// sections are missing. The input is not mutated.
func withDefaults(p Policy) Policy {
	out := p.Clone()
	if out.Tool == nil {
		out.Tool = &ToolPolicy{}
	}
	if out.Exec == nil {
		out.Exec = &ExecPolicy{}
	}
	if out.Paths == nil {
		out.Paths = &PathPolicy{}
	}
	if len(out.Paths.Deny) == 0 {
		out.Paths.Deny = append([]string(nil), defaultPathDeny...)
	}
	if out.URLs == nil {
		out.URLs = &URLPolicy{}
	}
	if len(out.URLs.DenySchemes) == 0 {
		out.URLs.DenySchemes = append([]string(nil), defaultURLDenySchemes...)
	}
	if len(out.URLs.DenyDomains) == 0 {
		out.URLs.DenyDomains = append([]string(nil), defaultURLDenyDomains...)
	}
	if out.Thresholds == nil {
		out.Thresholds = &ThresholdsPolicy{
			ScanApproveAt: UntrustedApproveAt,
			ScanDenyAt:    UntrustedDenyAt,
		}
	}
	return out
}
