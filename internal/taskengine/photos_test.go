package taskengine

import (
	"testing"

	"taskdesk/internal/models"
)

func TestProofDir(t *testing.T) {
	if got := ProofDir(models.Task{ID: 4, CompanyID: 1}); got != "/proofs/1/4/" {
		t.Fatalf("ProofDir = %q", got)
	}
}

func TestOwnsProof(t *testing.T) {
	task := models.Task{ID: 4, CompanyID: 1}
	tests := []struct {
		ref  string
		want bool
	}{
		{"/proofs/1/4/a.jpg", true},
		{"proofs/1/4/sub/b.jpg", true},
		{"https://cdn.example.com/proofs/1/4/c.jpg", true},
		{"/proofs/1/4/", false},
		{"/proofs/1/4", false},
		{"/proofs/1/40/a.jpg", false},
		{"/proofs/2/4/a.jpg", false},
		{"https://anything/company2/proof.jpg", false},
		{"/proofs/1/4/../../2/5/a.jpg", false},
		{"/examples/fridge.jpg", false},
	}
	for _, tt := range tests {
		if got := OwnsProof(task, tt.ref); got != tt.want {
			t.Errorf("OwnsProof(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestIsProofRef(t *testing.T) {
	for ref, want := range map[string]bool{
		"/proofs/2/9/a.jpg":                    true,
		"/proofs":                              true,
		"https://x/proofs/../proofs/1/1/a.jpg": true,
		"/examples/a.jpg":                      false,
		"/proofsheet.jpg":                      false,
		"":                                     false,
	} {
		if got := IsProofRef(ref); got != want {
			t.Errorf("IsProofRef(%q) = %v, want %v", ref, got, want)
		}
	}
}
