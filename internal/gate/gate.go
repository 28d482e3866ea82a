package gate

import (
	"github.com/clawguard/clawguard/internal/policy"
)

// Mode is the runtime stance requested by the operator.
type Mode string

const (
	ModeUntrusted Mode = "untrusted"
	ModeTrusted   Mode = "trusted"
)

// Valid reports whether the mode is a known value.
func (m Mode) Valid() bool {
	return m == ModeUntrusted || m == ModeTrusted
}

// Stance is the composed runtime posture: the effective mode plus the
// policy with that mode's overrides applied.
type Stance struct {
	ModeRequested Mode
	ModeEffective Mode
	Policy        policy.Policy
}

// Compose overlays the mode stance onto a base policy. The trusted
// stance is only honored for a bundle whose trust status is trusted;
// otherwise the composer falls back to untrusted and reports it.
func Compose(requested Mode, bundleTrusted bool, base policy.Policy) Stance {
	if !requested.Valid() {
		requested = ModeUntrusted
	}
	effective := requested
	if requested == ModeTrusted && !bundleTrusted {
		effective = ModeUntrusted
	}

	p := base.Clone()
	if p.Tool == nil {
		p.Tool = &policy.ToolPolicy{}
	}
	if p.Thresholds == nil {
		p.Thresholds = &policy.ThresholdsPolicy{}
	}
	p.Tool.ElevatedRequiresApproval = true

	if effective == ModeTrusted {
		p.Tool.SandboxOnly = nil
		p.Tool.Denylist = without(p.Tool.Denylist, "system_exec")
		p.Thresholds.ScanApproveAt = policy.TrustedApproveAt
		p.Thresholds.ScanDenyAt = policy.TrustedDenyAt
	} else {
		p.Tool.SandboxOnly = []string{"system_*", "browser_*", "workflow_tool"}
		if !contains(p.Tool.Denylist, "system_exec") {
			p.Tool.Denylist = append(p.Tool.Denylist, "system_exec")
		}
		p.Thresholds.ScanApproveAt = policy.UntrustedApproveAt
		p.Thresholds.ScanDenyAt = policy.UntrustedDenyAt
	}

	return Stance{
		ModeRequested: requested,
		ModeEffective: effective,
		Policy:        p,
	}
}

// InstallAction maps a scan risk score to an install action using the
// stance thresholds. Deny wins over needs_approval.
func InstallAction(riskScore int, t *policy.ThresholdsPolicy) policy.Action {
	approveAt := policy.UntrustedApproveAt
	denyAt := policy.UntrustedDenyAt
	if t != nil {
		if t.ScanApproveAt > 0 {
			approveAt = t.ScanApproveAt
		}
		if t.ScanDenyAt > 0 {
			denyAt = t.ScanDenyAt
		}
	}

	switch {
	case riskScore >= denyAt:
		return policy.ActionDeny
	case riskScore >= approveAt:
		return policy.ActionNeedsApproval
	default:
		return policy.ActionAllow
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
