package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/icco/kodflex/lib/session"
	"github.com/icco/kodflex/lib/validation"
)

// maxBodyBytes caps form and JSON bodies on the auth endpoints.
const maxBodyBytes = 1 << 16

type loginData struct {
	pageData
	Email string
	Error string
}

type registerData struct {
	pageData
	Name        string
	Email       string
	PhoneNumber string
	Error       string
	Registered  bool
}

// authStatus maps a session manager error onto the status of the re-rendered form.
func authStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, session.ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (rn *renderer) HandleLoginPage(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if _, err := sessions.FromRequest(req); err == nil {
			http.Redirect(w, req, "/home", http.StatusSeeOther)
			return
		}
		rn.render(w, "login", http.StatusOK, loginData{})
	}
}

func (rn *renderer) HandleLogin(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
		if err := req.ParseForm(); err != nil {
			rn.render(w, "login", http.StatusBadRequest, loginData{Error: "Invalid form submission"})
			return
		}
		email := req.PostFormValue("email")

		s, err := sessions.Login(req.Context(), email, req.PostFormValue("password"))
		if err != nil {
			slog.Info("Login failed", slog.Any("error", err))
			rn.render(w, "login", authStatus(err), loginData{Email: email, Error: userMessage(err)})
			return
		}

		session.SetCookie(w, s)
		http.Redirect(w, req, "/home", http.StatusSeeOther)
	}
}

func (rn *renderer) HandleRegisterPage(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if _, err := sessions.FromRequest(req); err == nil {
			http.Redirect(w, req, "/home", http.StatusSeeOther)
			return
		}
		rn.render(w, "register", http.StatusOK, registerData{})
	}
}

func (rn *renderer) HandleRegister(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
		if err := req.ParseForm(); err != nil {
			rn.render(w, "register", http.StatusBadRequest, registerData{Error: "Invalid form submission"})
			return
		}
		profile := session.Profile{
			Name:        req.PostFormValue("name"),
			Email:       req.PostFormValue("email"),
			Password:    req.PostFormValue("password"),
			PhoneNumber: req.PostFormValue("phoneNumber"),
		}

		s, err := sessions.Register(req.Context(), profile)
		if err != nil {
			slog.Info("Registration failed", slog.Any("error", err))
			rn.render(w, "register", authStatus(err), registerData{
				Name:        profile.Name,
				Email:       profile.Email,
				PhoneNumber: profile.PhoneNumber,
				Error:       userMessage(err),
			})
			return
		}

		session.SetCookie(w, s)
		rn.render(w, "register", http.StatusCreated, registerData{Registered: true})
	}
}

func HandleLogout(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if s, err := sessions.FromRequest(req); err == nil {
			sessions.Logout(s.ID)
		}
		session.ClearCookie(w)
		http.Redirect(w, req, "/login", http.StatusSeeOther)
	}
}

type accountResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func HandleAPIRegister(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			validation.WriteError(w, errors.New("failed to read request body"), http.StatusBadRequest)
			return
		}
		payload, err := validation.ParseRegistration(body)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		s, err := sessions.Register(req.Context(), session.Profile{
			Name:        payload.Name,
			Email:       payload.Email,
			Password:    payload.Password,
			PhoneNumber: payload.PhoneNumber,
		})
		if err != nil {
			validation.WriteError(w, errors.New(userMessage(err)), authStatus(err))
			return
		}

		session.SetCookie(w, s)
		writeJSON(w, http.StatusCreated, accountResponse{Name: s.Name, Email: s.Email})
	}
}

func HandleAPILogin(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			validation.WriteError(w, errors.New("failed to read request body"), http.StatusBadRequest)
			return
		}
		payload, err := validation.ParseLogin(body)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		s, err := sessions.Login(req.Context(), payload.Email, payload.Password)
		if err != nil {
			validation.WriteError(w, errors.New(userMessage(err)), authStatus(err))
			return
		}

		session.SetCookie(w, s)
		writeJSON(w, http.StatusOK, accountResponse{Name: s.Name, Email: s.Email})
	}
}

// userMessage hides storage errors behind a generic message; validation and
// credential errors are already meant for the form.
func userMessage(err error) string {
	if errors.Is(err, session.ErrStorage) {
		return "Something went wrong. Please try again."
	}
	return err.Error()
}
