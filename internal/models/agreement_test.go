package models

import (
	"encoding/json"
	"testing"
)

func TestIsValidAgreementTransition(t *testing.T) {
	tests := []struct {
		from     AgreementStatus
		to       AgreementStatus
		expected bool
	}{
		// Happy path
		{AgreementStatusPending, AgreementStatusActive, true},
		{AgreementStatusActive, AgreementStatusTerminated, true},

		// Invalid transitions
		{AgreementStatusPending, AgreementStatusTerminated, false},
		{AgreementStatusPending, AgreementStatusPending, false},
		{AgreementStatusActive, AgreementStatusPending, false},
		{AgreementStatusActive, AgreementStatusActive, false},
		{AgreementStatusTerminated, AgreementStatusActive, false},
		{AgreementStatusTerminated, AgreementStatusPending, false},
		{AgreementStatusTerminated, AgreementStatusTerminated, false},
		{AgreementStatus(42), AgreementStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			result := IsValidAgreementTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidAgreementTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllAgreementStatusesHaveTransitionEntry(t *testing.T) {
	for status := range agreementStatusNames {
		if _, ok := ValidAgreementTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidAgreementTransitions map", status)
		}
	}
}

func TestTerminatedHasNoTransitions(t *testing.T) {
	if n := len(ValidAgreementTransitions[AgreementStatusTerminated]); n != 0 {
		t.Errorf("terminated should have no transitions, got %d", n)
	}
}

func TestAgreementStatusJSON(t *testing.T) {
	data, err := json.Marshal(AgreementStatusActive)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"active"` {
		t.Fatalf("marshal = %s, want \"active\"", data)
	}

	var s AgreementStatus
	if err := json.Unmarshal([]byte(`"terminated"`), &s); err != nil {
		t.Fatal(err)
	}
	if s != AgreementStatusTerminated {
		t.Errorf("unmarshal = %s, want terminated", s)
	}

	if err := json.Unmarshal([]byte(`"archived"`), &s); err == nil {
		t.Error("expected error for unknown status")
	}
}
