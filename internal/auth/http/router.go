package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/microblog-go/microblog/internal/auth/service"
	"github.com/microblog-go/microblog/internal/auth/session"
	commonhttp "github.com/microblog-go/microblog/internal/common/http"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/common/validation"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	"github.com/microblog-go/microblog/internal/web"
)

const homePath = "/index"

type Handler struct {
	auth     *service.AuthService
	sessions *session.Manager
	identity *IdentityMiddleware
	render   *web.Renderer
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
}

func NewHandler(
	auth *service.AuthService,
	sessions *session.Manager,
	identity *IdentityMiddleware,
	render *web.Renderer,
	eh *commonhttp.ErrorHandler,
	log *logger.Logger,
) *Handler {
	return &Handler{
		auth:     auth,
		sessions: sessions,
		identity: identity,
		render:   render,
		errors:   eh,
		log:      log,
	}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.Handle("GET /login", h.identity.Wrap(h.loginPage))
	mux.Handle("POST /login", h.identity.Wrap(h.login))
	mux.Handle("GET /logout", h.identity.Wrap(h.logout))
	mux.Handle("GET /register", h.identity.Wrap(h.registerPage))
	mux.Handle("POST /register", h.identity.Wrap(h.register))
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if ident.IsAuthenticated() {
		commonhttp.SeeOther(w, r, homePath)
		return
	}
	h.renderLogin(w, r, http.StatusOK, map[string]string{"next": r.URL.Query().Get("next")}, nil)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if ident.IsAuthenticated() {
		commonhttp.SeeOther(w, r, homePath)
		return
	}
	if err := commonhttp.ParseForm(r); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	form := service.LoginForm{
		Username:   r.PostFormValue("username"),
		Password:   r.PostFormValue("password"),
		RememberMe: r.PostFormValue("remember_me") != "",
	}
	next := r.URL.Query().Get("next")

	user, err := h.auth.Login(r.Context(), form)
	if err != nil {
		if vErr, ok := validation.AsValidationError(err); ok {
			h.renderLogin(w, r, http.StatusOK, map[string]string{"username": form.Username, "next": next}, vErr.Fields)
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			commonhttp.Flash(w, r, service.ErrInvalidCredentials.Message())
			target := "/login"
			if safe := commonhttp.SafeRedirectTarget(next, ""); safe != "" {
				target += "?next=" + url.QueryEscape(safe)
			}
			commonhttp.SeeOther(w, r, target)
			return
		}
		h.errors.HandleError(w, r, err)
		return
	}

	if err := h.sessions.Issue(w, user.ID, form.RememberMe); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.log.WithFields(r.Context(), logger.Fields{
		"user_id":   string(user.ID),
		"client_ip": commonhttp.GetClientIP(r),
		"action":    "session_started",
	}).Info("session started")

	commonhttp.SeeOther(w, r, commonhttp.SafeRedirectTarget(next, homePath))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	h.sessions.Clear(w)
	if ident.IsAuthenticated() {
		h.log.WithFields(r.Context(), logger.Fields{
			"user_id": string(ident.SubjectID()),
			"action":  "session_ended",
		}).Info("session ended")
	}
	commonhttp.SeeOther(w, r, homePath)
}

func (h *Handler) registerPage(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if ident.IsAuthenticated() {
		commonhttp.SeeOther(w, r, homePath)
		return
	}
	h.renderRegister(w, r, http.StatusOK, nil, nil)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if ident.IsAuthenticated() {
		commonhttp.SeeOther(w, r, homePath)
		return
	}
	if err := commonhttp.ParseForm(r); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	form := service.RegistrationForm{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}
	values := map[string]string{"username": form.Username, "email": form.Email}

	if _, err := h.auth.Register(r.Context(), form); err != nil {
		if dup, ok := service.AsDuplicateIdentifier(err); ok {
			fields := validation.FieldErrors{}
			fields.Add(dup.Field, dup.Message())
			h.renderRegister(w, r, http.StatusOK, values, fields)
			return
		}
		if vErr, ok := validation.AsValidationError(err); ok {
			h.renderRegister(w, r, http.StatusOK, values, vErr.Fields)
			return
		}
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.Flash(w, r, "Congratulations, you are now a registered user!")
	commonhttp.SeeOther(w, r, "/login")
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, values map[string]string, errs validation.FieldErrors) {
	h.render.Render(w, r, status, "login", web.Page{Title: "Sign In", Form: values, Errors: errs})
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, status int, values map[string]string, errs validation.FieldErrors) {
	h.render.Render(w, r, status, "register", web.Page{Title: "Register", Form: values, Errors: errs})
}
