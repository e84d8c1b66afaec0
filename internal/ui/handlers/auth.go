// auth.go — вход, регистрация и выход по email и паролю.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
	"github.com/bigkaa/cleancity/portal/internal/ui/pages"
)

// authTimeout — таймаут обращения к провайдеру идентификации.
const authTimeout = 15 * time.Second

// AuthHandler — страницы входа и регистрации.
type AuthHandler struct {
	*Base
}

// NewAuthHandler создаёт AuthHandler.
func NewAuthHandler(base *Base) *AuthHandler {
	return &AuthHandler{Base: base}
}

// HandleLoginPage — GET /login.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if clientOf(r).Gate.IsAuthenticated() {
		redirect(w, r, safeRedirect(r.URL.Query().Get("next"), "/"))
		return
	}
	v := h.view(r, "auth.login_title")
	v.Form.Values["next"] = r.URL.Query().Get("next")
	h.render(w, http.StatusOK, "login", v)
}

// HandleLogin — POST /login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	form := service.SignInForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := form.Validate(); err != nil {
		v := h.view(r, "auth.login_title")
		v.Form.Values["email"] = form.Email
		v.Form.Values["next"] = r.FormValue("next")
		formErrors(v, err)
		h.render(w, http.StatusUnprocessableEntity, "login", v)
		return
	}

	c := clientOf(r)
	ctx, cancel := context.WithTimeout(r.Context(), authTimeout)
	defer cancel()

	if err := c.Session.SignIn(ctx, form.Email, form.Password); err != nil {
		h.logError(r, err)
		h.notify(r, notify.Error, errorKey(err))
		v := h.view(r, "auth.login_title")
		v.Form.Values["email"] = form.Email
		v.Form.Values["next"] = r.FormValue("next")
		h.render(w, statusFor(err), "login", v)
		return
	}

	h.cookies.SaveCookie(w, c)
	h.notify(r, notify.Success, "auth.signed_in")
	redirect(w, r, safeRedirect(r.FormValue("next"), "/"))
}

// HandleSignupPage — GET /signup.
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	if clientOf(r).Gate.IsAuthenticated() {
		redirect(w, r, "/")
		return
	}
	h.render(w, http.StatusOK, "signup", h.view(r, "auth.signup_title"))
}

// HandleSignup — POST /signup. Имя сохраняется в профиль при первом входе.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	form := service.SignUpForm{
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password_confirm"),
		DisplayName:     strings.TrimSpace(r.FormValue("display_name")),
	}

	if err := form.Validate(); err != nil {
		v := h.signupView(r, form)
		formErrors(v, err)
		h.render(w, http.StatusUnprocessableEntity, "signup", v)
		return
	}

	c := clientOf(r)
	ctx, cancel := context.WithTimeout(r.Context(), authTimeout)
	defer cancel()

	if err := c.Session.SignUp(ctx, form.Email, form.Password, form.DisplayName); err != nil {
		h.logError(r, err)
		h.notify(r, notify.Error, errorKey(err))
		h.render(w, statusFor(err), "signup", h.signupView(r, form))
		return
	}

	h.cookies.SaveCookie(w, c)
	h.notify(r, notify.Success, "auth.signed_up")
	redirect(w, r, "/")
}

func (h *AuthHandler) signupView(r *http.Request, form service.SignUpForm) *pages.View {
	v := h.view(r, "auth.signup_title")
	v.Form.Values["email"] = form.Email
	v.Form.Values["display_name"] = form.DisplayName
	return v
}

// HandleLogout — POST /logout. Локальная сессия сбрасывается
// даже при ошибке выхода у провайдера.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	c := clientOf(r)
	ctx, cancel := context.WithTimeout(r.Context(), authTimeout)
	defer cancel()

	if err := c.Session.SignOut(ctx); err != nil {
		h.logger.Warn("Ошибка выхода у провайдера", slog.String("error", err.Error()))
	}

	h.cookies.SaveCookie(w, c)
	h.notify(r, notify.Info, "auth.signed_out")
	redirect(w, r, "/login")
}
