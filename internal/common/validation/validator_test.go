package validation

import (
	"errors"
	"strings"
	"testing"
)

type signupForm struct {
	Username  string `form:"username" validate:"required,max=8"`
	Email     string `form:"email" validate:"required,email"`
	Password  string `form:"password" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

func TestStruct_Valid(t *testing.T) {
	form := signupForm{Username: "alice", Email: "alice@x.com", Password: "pw1", Password2: "pw1"}
	if err := Struct(form); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestStruct_FieldMessages(t *testing.T) {
	form := signupForm{Username: "toolongname", Email: "not-an-email", Password: "pw1", Password2: "pw2"}

	err := Struct(form)
	vErr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}

	cases := map[string]string{
		"username":  "Field cannot be longer than 8 characters.",
		"email":     "Invalid email address.",
		"password2": "Field must be equal to password.",
	}
	for field, want := range cases {
		if got := vErr.Fields.First(field); got != want {
			t.Errorf("%s: expected %q, got %q", field, want, got)
		}
	}
	if _, present := vErr.Fields["password"]; present {
		t.Error("password is valid and should have no messages")
	}
}

func TestStruct_Required(t *testing.T) {
	err := Struct(signupForm{})
	vErr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"username", "email", "password", "password2"} {
		if got := vErr.Fields.First(field); got != "This field is required." {
			t.Errorf("%s: expected required message, got %q", field, got)
		}
	}
	if !strings.HasPrefix(vErr.Error(), "validation failed: ") {
		t.Errorf("unexpected error text %q", vErr.Error())
	}
}

func TestNewFieldError(t *testing.T) {
	err := NewFieldError("username", "Please use a different username.")
	if err.Fields.First("username") != "Please use a different username." {
		t.Errorf("unexpected fields %v", err.Fields)
	}
}
