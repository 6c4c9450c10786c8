package domain

import "testing"

func TestIdentity_Variants(t *testing.T) {
	var ident Identity = Anonymous{}
	if ident.IsAuthenticated() || ident.SubjectID() != "" {
		t.Error("anonymous identity must not be authenticated")
	}
	if _, ok := UserOf(ident); ok {
		t.Error("UserOf must reject anonymous")
	}

	u := &User{ID: "u1", Username: "alice"}
	ident = u
	if !ident.IsAuthenticated() || ident.SubjectID() != "u1" {
		t.Error("loaded user must be authenticated with its id")
	}
	got, ok := UserOf(ident)
	if !ok || got != u {
		t.Error("UserOf should return the same user")
	}
}

func TestIdentity_ZeroUser(t *testing.T) {
	var u *User
	if u.IsAuthenticated() {
		t.Error("nil user must not be authenticated")
	}
	if (&User{}).IsAuthenticated() {
		t.Error("user without id must not be authenticated")
	}
}
