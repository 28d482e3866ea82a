package gate

import (
	"testing"

	"github.com/clawguard/clawguard/internal/policy"
)

func TestCompose_UntrustedStance(t *testing.T) {
	s := Compose(ModeUntrusted, false, policy.Default())

	if s.ModeEffective != ModeUntrusted {
		t.Fatalf("mode_effective = %q", s.ModeEffective)
	}
	if len(s.Policy.Tool.SandboxOnly) != 3 {
		t.Fatalf("sandbox_only = %v", s.Policy.Tool.SandboxOnly)
	}
	found := false
	for _, d := range s.Policy.Tool.Denylist {
		if d == "system_exec" {
			found = true
		}
	}
	if !found {
		t.Fatal("untrusted stance must deny system_exec")
	}
	if s.Policy.Thresholds.ScanApproveAt != 30 || s.Policy.Thresholds.ScanDenyAt != 60 {
		t.Fatalf("thresholds = %+v", s.Policy.Thresholds)
	}
}

func TestCompose_TrustedHonoredOnlyWhenPinned(t *testing.T) {
	s := Compose(ModeTrusted, true, policy.Default())
	if s.ModeEffective != ModeTrusted {
		t.Fatalf("mode_effective = %q, want trusted", s.ModeEffective)
	}
	if len(s.Policy.Tool.SandboxOnly) != 0 {
		t.Fatalf("trusted stance must clear sandbox_only: %v", s.Policy.Tool.SandboxOnly)
	}
	for _, d := range s.Policy.Tool.Denylist {
		if d == "system_exec" {
			t.Fatal("trusted stance must not deny system_exec")
		}
	}
	if s.Policy.Thresholds.ScanApproveAt != 40 || s.Policy.Thresholds.ScanDenyAt != 80 {
		t.Fatalf("thresholds = %+v", s.Policy.Thresholds)
	}

	fallback := Compose(ModeTrusted, false, policy.Default())
	if fallback.ModeRequested != ModeTrusted || fallback.ModeEffective != ModeUntrusted {
		t.Fatalf("unpinned bundle must fall back: %+v", fallback)
	}
}

func TestCompose_DoesNotMutateBasePolicy(t *testing.T) {
	base := policy.Default()
	before := len(base.Tool.Denylist)
	_ = Compose(ModeUntrusted, false, base)
	if len(base.Tool.Denylist) != before {
		t.Fatal("compose mutated the base policy")
	}
}

func TestInstallAction_Thresholds(t *testing.T) {
	thresholds := &policy.ThresholdsPolicy{ScanApproveAt: 30, ScanDenyAt: 60}
	tests := []struct {
		score int
		want  policy.Action
	}{
		{0, policy.ActionAllow},
		{29, policy.ActionAllow},
		{30, policy.ActionNeedsApproval},
		{59, policy.ActionNeedsApproval},
		{60, policy.ActionDeny},
		{100, policy.ActionDeny},
	}
	for _, tt := range tests {
		if got := InstallAction(tt.score, thresholds); got != tt.want {
			t.Errorf("InstallAction(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
