package biometric

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func filled(v float64) Fingerprint {
	var fp Fingerprint
	for i := range fp {
		fp[i] = v
	}
	return fp
}

func TestAggregator_Finalize_Average(t *testing.T) {
	agg := NewAggregator(3, DivideByTotal)
	s := agg.Begin("alice")

	agg.Add(s, filled(0.40))
	agg.Add(s, filled(0.50))
	agg.Add(s, filled(0.60))

	tmpl, err := agg.Finalize(s)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if tmpl.Name != "alice" {
		t.Errorf("expected name alice, got %q", tmpl.Name)
	}
	if tmpl.ID == "" {
		t.Error("template should get an ID")
	}
	for _, seg := range Segments() {
		v, ok := tmpl.Value(seg)
		if !ok {
			t.Fatalf("%s should be present", seg)
		}
		if !floatEqual(v, 50) {
			t.Errorf("%s: expected 50cm, got %f", seg, v)
		}
	}
}

func TestAggregator_Finalize_VoidSampleDividesByTotal(t *testing.T) {
	agg := NewAggregator(3, DivideByTotal)
	s := agg.Begin("bob")

	void := filled(2.0)
	void[LeftThigh] = Unavailable

	agg.Add(s, filled(2.0))
	agg.Add(s, filled(2.0))
	agg.Add(s, void)

	tmpl, err := agg.Finalize(s)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	// (2.0 + 2.0) * 100 / 3: the void sample is skipped but still counted.
	want := (2.0 + 2.0) * 100 / 3
	for _, seg := range Segments() {
		if !floatEqual(tmpl.Values[seg], want) {
			t.Errorf("%s: expected %f, got %f", seg, want, tmpl.Values[seg])
		}
	}
	if !floatEqual(tmpl.Values[Neck], 133.33333333333334) {
		t.Errorf("expected 133.333..., got %v", tmpl.Values[Neck])
	}
}

func TestAggregator_Finalize_DivideByValid(t *testing.T) {
	agg := NewAggregator(3, DivideByValid)
	s := agg.Begin("bob")

	void := filled(2.0)
	void[Height] = Unavailable

	agg.Add(s, filled(2.0))
	agg.Add(s, filled(2.0))
	agg.Add(s, void)

	tmpl, err := agg.Finalize(s)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if !floatEqual(tmpl.Values[Neck], 200) {
		t.Errorf("expected 200cm, got %f", tmpl.Values[Neck])
	}
}

func TestAggregator_Finalize_AllVoid(t *testing.T) {
	for _, policy := range []DivisorPolicy{DivideByTotal, DivideByValid} {
		t.Run(policy.String(), func(t *testing.T) {
			agg := NewAggregator(2, policy)
			s := agg.Begin("ghost")
			agg.Add(s, filled(Unavailable))
			agg.Add(s, filled(Unavailable))

			tmpl, err := agg.Finalize(s)
			if err != nil {
				t.Fatalf("Finalize() error = %v", err)
			}
			if diff := cmp.Diff(Fingerprint{}, tmpl.Values); diff != "" {
				t.Errorf("expected all-zero template (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregator_Finalize_Empty(t *testing.T) {
	agg := NewAggregator(5, DivideByTotal)
	s := agg.Begin("nobody")

	_, err := agg.Finalize(s)
	if !errors.Is(err, ErrEmptySession) {
		t.Errorf("expected ErrEmptySession, got %v", err)
	}
}

func TestAggregator_AddIsBounded(t *testing.T) {
	agg := NewAggregator(2, DivideByTotal)
	s := agg.Begin("carol")

	if !agg.Add(s, filled(0.3)) || !agg.Add(s, filled(0.3)) {
		t.Fatal("first two samples should be accepted")
	}
	if !agg.Complete(s) {
		t.Error("session should be complete at target")
	}
	if agg.Add(s, filled(0.3)) {
		t.Error("sample beyond target should be rejected")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 samples, got %d", s.Len())
	}
}

func TestAggregator_Defaults(t *testing.T) {
	agg := NewAggregator(0, DivideByTotal)
	if agg.Target != DefaultSampleTarget {
		t.Errorf("expected default target %d, got %d", DefaultSampleTarget, agg.Target)
	}

	a := agg.Begin("dave")
	b := agg.Begin("dave")
	if a.ID == b.ID {
		t.Error("sessions should get distinct IDs")
	}
	if a.Target != DefaultSampleTarget || a.Len() != 0 {
		t.Errorf("unexpected new session %+v", a)
	}
}

func TestParseDivisorPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DivisorPolicy
		wantErr bool
	}{
		{"total", DivideByTotal, false},
		{"", DivideByTotal, false},
		{"VALID", DivideByValid, false},
		{"median", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDivisorPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDivisorPolicy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDivisorPolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewTemplate_AllPresent(t *testing.T) {
	tmpl := NewTemplate("erin", filled(40))
	want := [NumSegments]bool{}
	for i := range want {
		want[i] = true
	}
	if diff := cmp.Diff(want, tmpl.Present); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}

	tmpl.Present[Height] = false
	if _, ok := tmpl.Value(Height); ok {
		t.Error("missing segment should report ok=false")
	}
	if _, ok := tmpl.Value(NumSegments); ok {
		t.Error("out of range segment should report ok=false")
	}
}
