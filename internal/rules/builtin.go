package rules

import "github.com/clawguard/clawguard/internal/signals"

// The builtin pack version is frozen; new rules bump the version but
// never renumber existing rule ids.
const (
	BuiltinPackID      = "clawguard-core"
	BuiltinPackVersion = "2026.02.0"
)

var contentSelectors = []signals.Type{signals.TypeFile, signals.TypeCodeblock}

// Builtin returns the rule pack compiled into the binary.
func Builtin() Pack {
	return Pack{
		PackID:      BuiltinPackID,
		PackVersion: BuiltinPackVersion,
		Rules: []Rule{
			{
				ID:         "R001",
				Title:      "Remote script piped to shell",
				Severity:   SeverityCritical,
				ReasonCode: "remote_pipe_exec",
				Selectors:  contentSelectors,
				Match:      `(curl|wget)[^\n|]*\|\s*(ba|z|fi)?sh\b`,
				Score:      60,
				Doc:        "Downloading a script and piping it straight into a shell executes remote content sight unseen. There is no legitimate reason for a skill to install itself this way.",
			},
			{
				ID:         "R002",
				Title:      "Base64 decode piped to shell",
				Severity:   SeverityHigh,
				ReasonCode: "encoded_exec",
				Selectors:  contentSelectors,
				Match:      `base64\s+(-d|--decode)[^\n]*\|\s*(ba|z)?sh\b`,
				Score:      35,
				Doc:        "Decoding an embedded blob and executing it hides the payload from review.",
			},
			{
				ID:         "R003",
				Title:      "Eval of dynamic content",
				Severity:   SeverityMedium,
				ReasonCode: "dynamic_eval",
				Selectors:  contentSelectors,
				Match:      "eval\\s+(\"?\\$|\\$\\(|`)",
				Score:      20,
				Doc:        "eval over variables or command substitution executes data as code.",
			},
			{
				ID:         "R004",
				Title:      "Credential file access",
				Severity:   SeverityCritical,
				ReasonCode: "credential_path",
				Selectors:  []signals.Type{signals.TypeFile, signals.TypeCodeblock, signals.TypePath},
				Match:      `(\.ssh/|id_rsa|id_ed25519|\.aws/credentials|\.netrc|\.npmrc|keychain)`,
				Score:      40,
				Doc:        "References to SSH keys, cloud credentials, or keychains in a skill are a strong exfiltration indicator.",
			},
			{
				ID:         "R005",
				Title:      "Outbound data upload",
				Severity:   SeverityHigh,
				ReasonCode: "data_upload",
				Selectors:  contentSelectors,
				Match:      `curl[^\n]*\s(-d|--data|--data-binary|-F|--form|-T)\s[^\n]*`,
				Score:      30,
				Doc:        "A curl upload flag in install instructions moves local data to a remote host.",
			},
			{
				ID:         "R006",
				Title:      "Secret environment variable reference",
				Severity:   SeverityHigh,
				ReasonCode: "secret_env",
				Selectors:  contentSelectors,
				Match:      `(AWS_SECRET_ACCESS_KEY|GITHUB_TOKEN|OPENAI_API_KEY|ANTHROPIC_API_KEY|NPM_TOKEN)`,
				Score:      30,
				Doc:        "Skills have no business reading provider secrets from the environment.",
			},
			{
				ID:         "R007",
				Title:      "Instruction override phrasing",
				Severity:   SeverityHigh,
				ReasonCode: "prompt_injection",
				Selectors:  []signals.Type{signals.TypeMarkdown},
				Match:      `(ignore (all )?previous instructions|do not (tell|inform|mention).{0,20}user|without (telling|asking|informing) the user|keep this (hidden|secret))`,
				Score:      30,
				Doc:        "Phrases that steer the agent to act behind the user's back are prompt injection.",
			},
			{
				ID:         "R008",
				Title:      "Suspicious download host",
				Severity:   SeverityMedium,
				ReasonCode: "suspicious_url",
				Selectors:  []signals.Type{signals.TypeURL},
				Match:      `https?://(\d{1,3}(\.\d{1,3}){3}|[^/\s]*(pastebin\.com|transfer\.sh|0x0\.st|termbin\.com|xn--)[^/\s]*)`,
				Score:      15,
				Doc:        "Raw IP literals, paste sites, and punycode hosts are common droppers.",
			},
			{
				ID:         "R009",
				Title:      "Cryptominer reference",
				Severity:   SeverityHigh,
				ReasonCode: "cryptominer",
				Selectors:  contentSelectors,
				Match:      `(xmrig|minerd|stratum\+tcp://|coinhive)`,
				Score:      35,
				Doc:        "Mining software or stratum endpoints inside a skill are always hostile.",
			},
			{
				ID:         "R010",
				Title:      "Self-executing fetched file",
				Severity:   SeverityMedium,
				ReasonCode: "self_exec",
				Selectors:  contentSelectors,
				Match:      `(chmod\s+\+x\s|nohup\s+\S+\s*&)`,
				Score:      10,
				Doc:        "Marking a fetched file executable or detaching it with nohup prepares unattended execution.",
			},
			{
				ID:         "R011",
				Title:      "Long opaque base64 blob",
				Severity:   SeverityMedium,
				ReasonCode: "opaque_blob",
				Selectors:  contentSelectors,
				Match:      `[A-Za-z0-9+/]{120,}={0,2}`,
				Score:      10,
				Doc:        "Large inline base64 hides content from review.",
			},
			{
				ID:         "R012",
				Title:      "Archive entry with path traversal",
				Severity:   SeverityHigh,
				ReasonCode: "path_traversal",
				Selectors:  []signals.Type{signals.TypeMeta},
				Match:      `^path_traversal_entry\b`,
				Flags:      "gim",
				Score:      30,
				Doc:        "An archive entry that climbs out of its root would overwrite files outside the install directory.",
			},
			{
				ID:         "R013",
				Title:      "Ingest cap hit",
				Severity:   SeverityLow,
				ReasonCode: "ingest_warning",
				Selectors:  []signals.Type{signals.TypeMeta},
				Match:      `^ingest_warning:`,
				Flags:      "gim",
				Score:      5,
				Doc:        "The source tripped an ingest limit; part of it was not scanned.",
			},
			{
				ID:         "R014",
				Title:      "Executable or binary payload",
				Severity:   SeverityMedium,
				ReasonCode: "binary_payload",
				Selectors:  []signals.Type{signals.TypeMeta},
				Match:      `^(executable_file|binary_file)\b`,
				Flags:      "gim",
				Score:      10,
				Doc:        "Skills are instructions plus small scripts; shipped binaries cannot be reviewed.",
			},
			{
				ID:         "R015",
				Title:      "Nested archive",
				Severity:   SeverityMedium,
				ReasonCode: "nested_archive",
				Selectors:  []signals.Type{signals.TypeMeta},
				Match:      `^nested_archive\b`,
				Flags:      "gim",
				Score:      15,
				Doc:        "An archive inside the archive dodges the scanner's single-level extraction.",
			},
			{
				ID:         "R016",
				Title:      "Symlink entry",
				Severity:   SeverityMedium,
				ReasonCode: "symlink_entry",
				Selectors:  []signals.Type{signals.TypeMeta},
				Match:      `^symlink_entry\b`,
				Flags:      "gim",
				Score:      10,
				Doc:        "Symlinks in a skill bundle can point anywhere on the installing machine.",
			},
			{
				ID:         "R017",
				Title:      "Destructive filesystem command",
				Severity:   SeverityHigh,
				ReasonCode: "destructive_cmd",
				Selectors:  contentSelectors,
				Match:      `(rm\s+-[a-z]*r[a-z]*f[a-z]*\s+(/|~)|rm\s+-[a-z]*f[a-z]*r[a-z]*\s+(/|~)|mkfs\b|dd\s+if=|--no-preserve-root)`,
				Score:      30,
				Doc:        "Recursive force-deletes of root or home, mkfs, and raw dd have no place in a skill.",
			},
			{
				ID:         "R018",
				Title:      "Privilege escalation",
				Severity:   SeverityLow,
				ReasonCode: "sudo_usage",
				Selectors:  contentSelectors,
				Match:      `\bsudo\s+\S+`,
				Score:      5,
				Doc:        "sudo in install steps widens the blast radius of everything else found here.",
			},
			{
				ID:         "R019",
				Title:      "Reverse shell",
				Severity:   SeverityCritical,
				ReasonCode: "reverse_shell",
				Selectors:  contentSelectors,
				Match:      `(/dev/tcp/|\b(nc|ncat|netcat)\s+[^\n]*-[a-z]*e[a-z]*\s|mkfifo\s+[^\n]*\|\s*(ba)?sh)`,
				Score:      60,
				Doc:        "Bash /dev/tcp redirection and netcat -e are reverse shell one-liners.",
			},
		},
	}
}
