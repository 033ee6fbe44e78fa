package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"accounthub/internal/domain"
	"accounthub/internal/middleware"
	"accounthub/internal/pkg/apperr"
	"accounthub/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccessTokenCookie  = middleware.AccessTokenCookie
	RefreshTokenCookie = "refreshToken"
)

type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler manages all HTTP interactions for accounts
type Handler struct {
	service   *Service
	cookies   CookieConfig
	tempDir   string
	maxUpload int64
}

func NewHandler(service *Service, cookies CookieConfig, tempDir string, maxUpload int64) *Handler {
	return &Handler{
		service:   service,
		cookies:   cookies,
		tempDir:   tempDir,
		maxUpload: maxUpload,
	}
}

// Register creates an account from a multipart form.
// @Summary		Register a user
// @Tags		Users
// @Accept		multipart/form-data
// @Param		fullName	formData	string	true	"Full name"
// @Param		email		formData	string	true	"Email"
// @Param		username	formData	string	true	"Username"
// @Param		password	formData	string	true	"Password"
// @Param		avatar		formData	file	true	"Avatar image"
// @Param		coverImage	formData	file	false	"Cover image"
// @Success		201	{object}	response.Envelope
// @Failure		400	{object}	response.Envelope
// @Failure		409	{object}	response.Envelope
// @Router		/users/register [POST]
func (h *Handler) Register(c *gin.Context) {
	avatarPath, err := h.saveUpload(c, "avatar")
	if err != nil {
		fail(c, err)
		return
	}
	defer removeFile(avatarPath)

	coverPath, err := h.saveUpload(c, "coverImage")
	if err != nil {
		fail(c, err)
		return
	}
	defer removeFile(coverPath)

	user, err := h.service.Register(c.Request.Context(), RegisterInput{
		FullName:       c.PostForm("fullName"),
		Email:          c.PostForm("email"),
		Username:       c.PostForm("username"),
		Password:       c.PostForm("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user, "User registered successfully")
}

// Login
// @Summary		Log in with username or email
// @Tags		Users
// @Param		request	body	LoginRequest	true	"Credentials"
// @Success		200	{object}	response.Envelope
// @Failure		400,401,404	{object}	response.Envelope
// @Router		/users/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookies(c, res.Tokens)
	response.Success(c, http.StatusOK, LoginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout
// @Summary		Log out the current user
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}	response.Envelope
// @Router		/users/logout [POST]
func (h *Handler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Unauthorized("Unauthorized request"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}

	h.clearSessionCookies(c)
	response.Success(c, http.StatusOK, nil, "User logged out successfully")
}

// RefreshToken exchanges a refresh token (cookie or body) for a new pair.
// @Summary		Refresh the access token
// @Tags		Users
// @Param		request	body	RefreshRequest	false	"Refresh token when no cookie is sent"
// @Success		200	{object}	response.Envelope
// @Failure		401	{object}	response.Envelope
// @Router		/users/refresh-token [POST]
func (h *Handler) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(RefreshTokenCookie)
	if presented == "" {
		var req RefreshRequest
		// An empty or non-JSON body just means no token was sent.
		_ = c.ShouldBindJSON(&req)
		presented = req.RefreshToken
	}

	tokens, err := h.service.RefreshTokens(c.Request.Context(), presented)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookies(c, tokens)
	response.Success(c, http.StatusOK, tokens, "Access token refreshed successfully")
}

// ChangePassword
// @Summary		Change the current user's password
// @Tags		Users
// @Security	BearerAuth
// @Param		request	body	ChangePasswordRequest	true	"Old and new password"
// @Success		200	{object}	response.Envelope
// @Failure		400	{object}	response.Envelope
// @Router		/users/change-password [POST]
func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Unauthorized("Unauthorized request"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), user.ID, req); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser
// @Summary		Get the current user
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}	response.Envelope
// @Router		/users/current-user [GET]
func (h *Handler) CurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Unauthorized("Unauthorized request"))
		return
	}
	response.Success(c, http.StatusOK, user, "Current user fetched successfully")
}

// UpdateAccount
// @Summary		Update full name and email
// @Tags		Users
// @Security	BearerAuth
// @Param		request	body	UpdateAccountRequest	true	"Account details"
// @Success		200	{object}	response.Envelope
// @Failure		400,409	{object}	response.Envelope
// @Router		/users/update-account [PATCH]
func (h *Handler) UpdateAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Unauthorized("Unauthorized request"))
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}

	updated, err := h.service.UpdateAccount(c.Request.Context(), user.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar
// @Summary		Replace the avatar image
// @Tags		Users
// @Security	BearerAuth
// @Accept		multipart/form-data
// @Param		avatar	formData	file	true	"Avatar image"
// @Success		200	{object}	response.Envelope
// @Failure		400	{object}	response.Envelope
// @Router		/users/avatar [PATCH]
func (h *Handler) UpdateAvatar(c *gin.Context) {
	h.replaceImage(c, "avatar", h.service.UpdateAvatar, "User avatar updated successfully")
}

// UpdateCoverImage
// @Summary		Replace the cover image
// @Tags		Users
// @Security	BearerAuth
// @Accept		multipart/form-data
// @Param		coverImage	formData	file	true	"Cover image"
// @Success		200	{object}	response.Envelope
// @Failure		400	{object}	response.Envelope
// @Router		/users/cover-image [PATCH]
func (h *Handler) UpdateCoverImage(c *gin.Context) {
	h.replaceImage(c, "coverImage", h.service.UpdateCoverImage, "User cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (*domain.User, error)

func (h *Handler) replaceImage(c *gin.Context, field string, update imageUpdater, message string) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Unauthorized("Unauthorized request"))
		return
	}

	path, err := h.saveUpload(c, field)
	if err != nil {
		fail(c, err)
		return
	}
	defer removeFile(path)

	updated, err := update(c.Request.Context(), user.ID, path)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated, message)
}

// saveUpload copies the multipart file in field to the temp dir. A missing
// file yields an empty path.
func (h *Handler) saveUpload(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.KindValidation, "Invalid multipart form", err)
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return "", apperr.Validation(fmt.Sprintf("%s file is too large", field))
	}

	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return "", apperr.Internal("Failed to store upload", err)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(h.tempDir, name)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", apperr.Internal("Failed to store upload", err)
	}
	return path, nil
}

func (h *Handler) setSessionCookies(c *gin.Context, tokens *TokenPair) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(AccessTokenCookie, tokens.AccessToken, int(h.cookies.AccessTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(RefreshTokenCookie, tokens.RefreshToken, int(h.cookies.RefreshTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func removeFile(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
