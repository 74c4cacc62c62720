package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opshare/opshare/internal/api/middleware"
	"github.com/opshare/opshare/internal/mail"
	"github.com/opshare/opshare/internal/models"
	"github.com/opshare/opshare/internal/utils"
	"github.com/opshare/opshare/internal/validate"
	"github.com/opshare/opshare/internal/verification"
	"go.uber.org/zap"
)

// JWT Claims struct
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// POST /auth/register
// Register godoc
// @Summary Register a new user
// @Description Creates a user and their role assignment. The email must have completed verification first.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Name     string `json:"name"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	if input.Email == "" || input.Password == "" || input.Role == "" || input.Name == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "All fields are required.",
		})
		return
	}

	if !models.ValidRole(input.Role) {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid role.",
		})
		return
	}

	exists, err := h.Identity.EmailExists(input.Email)
	if err != nil {
		h.Log.Error("email lookup failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
		return
	}
	if exists {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Email already exists.",
		})
		return
	}

	verified, err := h.Ledger.HasVerifiedEmail(input.Email)
	if err != nil {
		h.Log.Error("verification lookup failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
		return
	}
	if !verified {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "First verify your email.",
		})
		return
	}

	if !validate.Password(input.Password) {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: validate.PasswordPolicy,
		})
		return
	}

	user, err := h.Identity.CreateUser(input.Email, input.Password, input.Name)
	if err != nil {
		h.Log.Error("user creation failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database insert failed",
		})
		return
	}

	if err := h.Roles.Assign(user.ID, input.Role); err != nil {
		h.Log.Error("role assignment failed", zap.Error(err), zap.Uint("userId", user.ID))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database insert failed",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Registration successful!",
	})
}

// POST /auth/login
// Login godoc
// @Summary Log in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	if input.Email == "" || input.Password == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	user, err := h.Identity.VerifyCredentials(input.Email, input.Password)
	if err != nil {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: "Incorrect credentials",
		})
		return
	}

	expiration := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID: strconv.FormatUint(uint64(user.ID), 10),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		h.Log.Error("token signing failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create token",
		})
		return
	}

	maxAge := int(expiration.Unix() - time.Now().Unix())
	isProd := h.Environment == "production"

	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
	})
}

// GET /auth/logout
//
// Logout is idempotent: without a live session it still answers 200, just
// with an informational message.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ParseSession(r, h.JWTSecret); !ok {
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "User is not authenticated.",
		})
		return
	}

	isProd := h.Environment == "production"

	// maxAge < 0 deletes the cookie
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   isProd,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logout successful.",
	})
}

// POST /auth/verify-email
// VerifyEmail godoc
// @Summary Request or check an email verification code
// @Description With only an email, issues a code and mails it. With email and code, checks the code.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	var input struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	if input.Email == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Email is required.",
		})
		return
	}

	if input.Code == "" {
		h.requestCode(w, input.Email)
		return
	}
	h.checkCode(w, input.Email, input.Code)
}

func (h *Handler) requestCode(w http.ResponseWriter, email string) {
	code, err := h.Ledger.RequestCode(email)
	if err != nil {
		h.Log.Error("code issue failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to issue verification code",
		})
		return
	}

	// The record above survives a delivery failure; the caller simply
	// requests a new code later.
	if err := h.Mailer.Send(email, mail.VerificationSubject, mail.VerificationBody(code)); err != nil {
		h.Log.Error("verification mail failed", zap.Error(err), zap.String("email", email))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: fmt.Sprintf("Failed to send email: %v", err),
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Verification code sent to email.",
	})
}

func (h *Handler) checkCode(w http.ResponseWriter, email, code string) {
	err := h.Ledger.CheckCode(email, code)
	switch {
	case err == nil:
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "Email verified successfully.",
		})
	case errors.Is(err, verification.ErrNotFound):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Verification code not found or expired.",
		})
	case errors.Is(err, verification.ErrMismatch):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Incorrect verification code.",
		})
	case errors.Is(err, verification.ErrExpired):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Verification code expired.",
		})
	default:
		h.Log.Error("code check failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
	}
}
