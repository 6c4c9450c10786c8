package service

import "strings"

type LoginForm struct {
	Username   string `form:"username" validate:"required"`
	Password   string `form:"password" validate:"required"`
	RememberMe bool   `form:"remember_me"`
}

type RegistrationForm struct {
	Username  string `form:"username" validate:"required,max=64"`
	Email     string `form:"email" validate:"required,email,max=120"`
	Password  string `form:"password" validate:"required,max=72"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

type EditProfileForm struct {
	Username string `form:"username" validate:"required,max=64"`
	AboutMe  string `form:"about_me" validate:"max=140"`
}

// normalize trims the identifiers. Passwords are taken as typed.
func (f *RegistrationForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

func (f *LoginForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

func (f *EditProfileForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.AboutMe = strings.TrimSpace(f.AboutMe)
}
