package http

import (
	"net/http"

	authhttp "github.com/microblog-go/microblog/internal/auth/http"
	authservice "github.com/microblog-go/microblog/internal/auth/service"
	commonhttp "github.com/microblog-go/microblog/internal/common/http"
	"github.com/microblog-go/microblog/internal/common/validation"
	postservice "github.com/microblog-go/microblog/internal/post/service"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	"github.com/microblog-go/microblog/internal/web"
)

const timelineLimit = 50

type Handler struct {
	auth     *authservice.AuthService
	posts    *postservice.PostService
	identity *authhttp.IdentityMiddleware
	render   *web.Renderer
	errors   *commonhttp.ErrorHandler
}

func NewHandler(
	auth *authservice.AuthService,
	posts *postservice.PostService,
	identity *authhttp.IdentityMiddleware,
	render *web.Renderer,
	eh *commonhttp.ErrorHandler,
) *Handler {
	return &Handler{auth: auth, posts: posts, identity: identity, render: render, errors: eh}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.Handle("GET /{$}", h.identity.Wrap(h.index))
	mux.Handle("POST /{$}", h.identity.Wrap(h.createPost))
	mux.Handle("GET /index", h.identity.Wrap(h.index))
	mux.Handle("POST /index", h.identity.Wrap(h.createPost))
	mux.Handle("GET /user/{username}", h.identity.Wrap(h.profile))
	mux.Handle("GET /edit_profile", h.identity.Wrap(h.editProfilePage))
	mux.Handle("POST /edit_profile", h.identity.Wrap(h.editProfile))
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if target, ok := authhttp.RequireLogin(ident, r); !ok {
		commonhttp.SeeOther(w, r, target)
		return
	}
	current, _ := userdomain.UserOf(ident)
	h.renderIndex(w, r, current, nil, nil)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if target, ok := authhttp.RequireLogin(ident, r); !ok {
		commonhttp.SeeOther(w, r, target)
		return
	}
	current, _ := userdomain.UserOf(ident)
	if err := commonhttp.ParseForm(r); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	form := postservice.PostForm{Body: r.PostFormValue("post")}
	if _, err := h.posts.CreatePost(r.Context(), current, form); err != nil {
		if vErr, ok := validation.AsValidationError(err); ok {
			h.renderIndex(w, r, current, map[string]string{"post": form.Body}, vErr.Fields)
			return
		}
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.Flash(w, r, "Your post is now live!")
	commonhttp.SeeOther(w, r, "/index")
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, current *userdomain.User, values map[string]string, errs validation.FieldErrors) {
	posts, err := h.posts.Recent(r.Context(), current.ID, timelineLimit)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "index", web.Page{
		Title:       "Home",
		CurrentUser: current,
		Form:        values,
		Errors:      errs,
		Data:        posts,
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if target, ok := authhttp.RequireLogin(ident, r); !ok {
		commonhttp.SeeOther(w, r, target)
		return
	}
	current, _ := userdomain.UserOf(ident)

	user, found, err := h.auth.UserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	if !found {
		h.render.ErrorPage(w, r, http.StatusNotFound, "File Not Found")
		return
	}

	posts, err := h.posts.Recent(r.Context(), user.ID, timelineLimit)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "user", web.Page{
		Title:       user.Username,
		CurrentUser: current,
		Data: web.UserPage{
			User:   user,
			Posts:  posts,
			IsSelf: user.ID == current.ID,
		},
	})
}

func (h *Handler) editProfilePage(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if target, ok := authhttp.RequireLogin(ident, r); !ok {
		commonhttp.SeeOther(w, r, target)
		return
	}
	current, _ := userdomain.UserOf(ident)
	h.renderEditProfile(w, r, current, map[string]string{
		"username": current.Username,
		"about_me": current.AboutMe,
	}, nil)
}

func (h *Handler) editProfile(w http.ResponseWriter, r *http.Request, ident userdomain.Identity) {
	if target, ok := authhttp.RequireLogin(ident, r); !ok {
		commonhttp.SeeOther(w, r, target)
		return
	}
	current, _ := userdomain.UserOf(ident)
	if err := commonhttp.ParseForm(r); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	form := authservice.EditProfileForm{
		Username: r.PostFormValue("username"),
		AboutMe:  r.PostFormValue("about_me"),
	}
	values := map[string]string{"username": form.Username, "about_me": form.AboutMe}

	if _, err := h.auth.UpdateProfile(r.Context(), *current, form); err != nil {
		if dup, ok := authservice.AsDuplicateIdentifier(err); ok {
			fields := validation.FieldErrors{}
			fields.Add(dup.Field, dup.Message())
			h.renderEditProfile(w, r, current, values, fields)
			return
		}
		if vErr, ok := validation.AsValidationError(err); ok {
			h.renderEditProfile(w, r, current, values, vErr.Fields)
			return
		}
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.Flash(w, r, "Your changes have been saved.")
	commonhttp.SeeOther(w, r, "/edit_profile")
}

func (h *Handler) renderEditProfile(w http.ResponseWriter, r *http.Request, current *userdomain.User, values map[string]string, errs validation.FieldErrors) {
	h.render.Render(w, r, http.StatusOK, "edit_profile", web.Page{
		Title:       "Edit Profile",
		CurrentUser: current,
		Form:        values,
		Errors:      errs,
	})
}
