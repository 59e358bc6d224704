package datalog

import "testing"

func TestOutcomeKindString(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{Found, "found"},
		{BeforeRange, "before-range"},
		{AfterRange, "after-range"},
		{ErrorOutcome, "error"},
		{OutcomeKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBeforeAfterRangeReplaceTimestamp(t *testing.T) {
	rec := Record{Rev: 1, Ts: 1000}

	b := beforeRange(rec, 500)
	if b.Record.Ts != 500 || b.Record.Rev != 1 {
		t.Errorf("beforeRange = %+v, want Ts=500 Rev=1", b.Record)
	}

	a := afterRange(rec, 5000)
	if a.Record.Ts != 5000 || a.Record.Rev != 1 {
		t.Errorf("afterRange = %+v, want Ts=5000 Rev=1", a.Record)
	}
}

func TestIsCorruption(t *testing.T) {
	if !IsCorruption(ErrCorruptionDetected) {
		t.Error("IsCorruption(ErrCorruptionDetected) = false, want true")
	}
	if IsCorruption(ErrNoEntries) {
		t.Error("IsCorruption(ErrNoEntries) = true, want false")
	}
}
