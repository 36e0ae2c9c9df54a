package validate

import (
	"errors"
	"testing"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Group string `json:"blood_group" validate:"required,bloodgroup"`
	Age   int    `json:"age" validate:"min=18,max=65"`
}

func TestStruct(t *testing.T) {
	v := New()

	if err := v.Struct(sample{Email: "a@b.org", Group: "O+", Age: 30}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	err := v.Struct(sample{Email: "nope", Group: "Z+", Age: 12})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, field := range []string{"email", "blood_group", "age"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("missing error for %s: %v", field, verr.Fields)
		}
	}
}
