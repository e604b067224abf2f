package tray

import "testing"

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{toggleTitle(true), "● Enabled"},
		{toggleTitle(false), "○ Disabled"},
		{presentTitle(""), "Present: nobody"},
		{presentTitle("alice"), "Present: alice"},
		{stateTitle("collecting_data"), "State: collecting_data"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("tray should start enabled")
	}

	var calls []bool
	tr.OnToggle(func(enabled bool) { calls = append(calls, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(calls) != 2 || calls[0] || !calls[1] {
		t.Errorf("unexpected toggle callbacks %v", calls)
	}
	if !tr.IsEnabled() {
		t.Error("two toggles should re-enable")
	}
}

func TestTray_SetPresentBeforeReady(t *testing.T) {
	tr := New()
	tr.SetPresent("bob")
	tr.SetState("start_enrolment")

	if tr.Present() != "bob" {
		t.Errorf("expected bob, got %q", tr.Present())
	}
}

func TestTray_Dashboard(t *testing.T) {
	tr := New()
	tr.handleDashboard()

	opened := false
	tr.OnDashboard(func() { opened = true })
	tr.handleDashboard()
	if !opened {
		t.Error("dashboard callback not called")
	}
}
