package validator

import "testing"

type enrollPayload struct {
	Images []string `validate:"required,min=1,dive,required"`
}

func TestValidateStruct(t *testing.T) {
	if errs := ValidatorInstance.ValidateStruct(enrollPayload{Images: []string{"a"}}); errs != nil {
		t.Errorf("expected valid payload, got %v", *errs)
	}

	errs := ValidatorInstance.ValidateStruct(enrollPayload{Images: []string{"a", ""}})
	if errs == nil || len(*errs) != 1 {
		t.Fatalf("expected one error for empty element, got %v", errs)
	}

	if errs := ValidatorInstance.ValidateStruct(enrollPayload{}); errs == nil {
		t.Error("expected error for missing images")
	}
}

func TestValidateValue_OwnerID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"user-42", true},
		{"alice@example.com", true},
		{"org:team.member_1", true},
		{"", false},
		{"has space", false},
		{"slash/inside", false},
		{"line\nbreak", false},
	}
	for _, tt := range tests {
		err := ValidatorInstance.ValidateValue(tt.id, "owner_id")
		if (err == nil) != tt.valid {
			t.Errorf("owner_id %q: valid=%v, err=%v", tt.id, tt.valid, err)
		}
	}
}
