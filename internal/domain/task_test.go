package domain

import "testing"

func TestTaskDescriptorKey(t *testing.T) {
	tests := []struct {
		name string
		d    TaskDescriptor
		want string
	}{
		{"subgram", TaskDescriptor{Source: SourceSubgram, Link: "https://t.me/ch"}, "subgram:https://t.me/ch"},
		{"flyer", TaskDescriptor{Source: SourceFlyer, ResourceID: "r42"}, "flyer:r42"},
		{"local", TaskDescriptor{Source: SourceLocal, TaskID: 9}, "local:9"},
		{"unknown", TaskDescriptor{Source: "other"}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Key(); got != tt.want {
				t.Errorf("Key() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVerificationResultString(t *testing.T) {
	if got := VerificationCompleted.String(); got != "completed" {
		t.Errorf("String() = %s", got)
	}
	if got := VerificationResult(99).String(); got != "unknown" {
		t.Errorf("String() for out-of-range = %s", got)
	}
}
