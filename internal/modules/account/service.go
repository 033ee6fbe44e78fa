package account

import (
	"context"
	"errors"
	"strings"

	"accounthub/internal/domain"
	"accounthub/internal/events"
	"accounthub/internal/pkg/apperr"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/pkg/metrics"
	"accounthub/internal/pkg/validator"

	"golang.org/x/crypto/bcrypt"
)

// Service contains the account business logic. Handlers translate HTTP into
// calls here; every failure it returns is an *apperr.Error.
type Service struct {
	users      UserStore
	tokens     TokenIssuer
	sessions   *SessionRotator
	uploader   MediaUploader
	locks      Locker
	publisher  EventPublisher
	log        logging.Logger
	bcryptCost int
}

func NewService(
	users UserStore,
	tokens TokenIssuer,
	uploader MediaUploader,
	locks Locker,
	publisher EventPublisher,
	log logging.Logger,
	bcryptCost int,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if log == nil {
		log = logging.Discard()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		sessions:   NewSessionRotator(users, tokens),
		uploader:   uploader,
		locks:      locks,
		publisher:  publisher,
		log:        log,
		bcryptCost: bcryptCost,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (user *domain.User, err error) {
	defer func() { metrics.RecordAuth("register", err) }()

	in.Email = strings.TrimSpace(in.Email)
	if errs := validator.Validate(in); len(errs) > 0 {
		return nil, inputError(errs)
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, apperr.Conflict(msgUserExists)
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	if in.AvatarPath == "" {
		return nil, apperr.Validation(msgAvatarRequired)
	}
	avatarURL, err := s.upload(ctx, in.AvatarPath)
	if err != nil {
		s.log.Warn(ctx, "avatar upload failed", "error", err)
		return nil, apperr.Validation(msgAvatarRequired)
	}

	var coverURL string
	if in.CoverImagePath != "" {
		if coverURL, err = s.upload(ctx, in.CoverImagePath); err != nil {
			s.log.Warn(ctx, "cover image upload failed, continuing without it", "error", err)
			coverURL = ""
		}
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	created := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, created); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, apperr.Conflict(msgUserExists)
		}
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	user, err = s.users.FindByID(ctx, created.ID, domain.ProjectionPublic)
	if err != nil {
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	s.publish(ctx, events.UserRegistered, user.ID)
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (res *LoginResult, err error) {
	defer func() { metrics.RecordAuth("login", err) }()

	if strings.TrimSpace(req.Username) == "" && strings.TrimSpace(req.Email) == "" {
		return nil, apperr.Validation(msgLoginIdentRequired)
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, apperr.Internal("Failed to login", err)
	}

	if !checkPassword(user.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	tokens, err := s.sessions.Rotate(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}

	loggedIn, err := s.users.FindByID(ctx, user.ID, domain.ProjectionPublic)
	if err != nil {
		return nil, apperr.Internal("Failed to login", err)
	}

	s.publish(ctx, events.UserLoggedIn, user.ID)
	return &LoginResult{User: loggedIn, Tokens: tokens}, nil
}

// Logout drops the stored refresh token so it can no longer be exchanged.
// Access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID string) (err error) {
	defer func() { metrics.RecordAuth("logout", err) }()

	empty := ""
	_, err = s.users.Update(ctx, userID,
		domain.UserUpdate{RefreshToken: &empty},
		domain.UpdateOptions{SkipValidation: true, Projection: domain.ProjectionPublic},
	)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return apperr.Internal("Failed to logout", err)
	}

	s.publish(ctx, events.UserLoggedOut, userID)
	return nil
}

// RefreshTokens exchanges a refresh token for a new pair. Exchanges for the
// same user run one at a time, and the store only accepts the swap while the
// presented token is still the stored one.
func (s *Service) RefreshTokens(ctx context.Context, presented string) (pair *TokenPair, err error) {
	defer func() { metrics.RecordAuth("refresh", err) }()

	if presented == "" {
		return nil, apperr.Unauthorized(msgUnauthorizedRequest)
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err.Error(), err)
	}

	unlock, err := s.locks.Lock(ctx, "refresh:"+claims.UserID)
	if err != nil {
		return nil, apperr.Internal(msgTokenGenerationFailed, err)
	}
	defer unlock()

	user, err := s.users.FindByID(ctx, claims.UserID, domain.ProjectionNoPassword)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperr.Unauthorized(msgInvalidRefreshToken)
		}
		return nil, apperr.Internal(msgTokenGenerationFailed, err)
	}

	if presented != user.RefreshToken {
		return nil, apperr.Unauthorized(msgRefreshTokenUsed)
	}

	return s.sessions.Rotate(ctx, user.ID, presented)
}

func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (err error) {
	defer func() { metrics.RecordAuth("password_change", err) }()

	if errs := validator.Validate(req); len(errs) > 0 {
		return apperr.Validation(msgPasswordsRequired)
	}

	user, err := s.users.FindByID(ctx, userID, domain.ProjectionFull)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return apperr.Internal("Failed to change password", err)
	}

	if !checkPassword(user.PasswordHash, req.OldPassword) {
		return apperr.Validation(msgInvalidOldPassword)
	}

	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	if _, err := s.users.Update(ctx, userID,
		domain.UserUpdate{PasswordHash: &hash},
		domain.UpdateOptions{Projection: domain.ProjectionPublic},
	); err != nil {
		return apperr.Internal("Failed to change password", err)
	}

	s.publish(ctx, events.PasswordChanged, userID)
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID, domain.ProjectionPublic)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, apperr.Internal("Failed to load user", err)
	}
	return user, nil
}

// UpdateAccount sets full name and email. Writing the same values again
// returns the same account.
func (s *Service) UpdateAccount(ctx context.Context, userID string, req UpdateAccountRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if errs := validator.Validate(req); len(errs) > 0 {
		return nil, inputError(errs)
	}

	fullName := strings.TrimSpace(req.FullName)
	email := domain.NormalizeEmail(req.Email)
	user, err := s.users.Update(ctx, userID,
		domain.UserUpdate{FullName: &fullName, Email: &email},
		domain.UpdateOptions{Projection: domain.ProjectionPublic},
	)
	if err != nil {
		return nil, s.updateError(err)
	}

	s.publish(ctx, events.ProfileUpdated, userID)
	return user, nil
}

func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (*domain.User, error) {
	if localPath == "" {
		return nil, apperr.Validation(msgAvatarMissing)
	}
	url, err := s.upload(ctx, localPath)
	if err != nil {
		s.log.Warn(ctx, "avatar upload failed", "user_id", userID, "error", err)
		return nil, apperr.Validation(msgAvatarUploadFailed)
	}

	user, err := s.users.Update(ctx, userID,
		domain.UserUpdate{Avatar: &url},
		domain.UpdateOptions{Projection: domain.ProjectionPublic},
	)
	if err != nil {
		return nil, s.updateError(err)
	}

	s.publish(ctx, events.ProfileUpdated, userID)
	return user, nil
}

func (s *Service) UpdateCoverImage(ctx context.Context, userID, localPath string) (*domain.User, error) {
	if localPath == "" {
		return nil, apperr.Validation(msgCoverMissing)
	}
	url, err := s.upload(ctx, localPath)
	if err != nil {
		s.log.Warn(ctx, "cover image upload failed", "user_id", userID, "error", err)
		return nil, apperr.Validation(msgCoverUploadFailed)
	}

	user, err := s.users.Update(ctx, userID,
		domain.UserUpdate{CoverImage: &url},
		domain.UpdateOptions{Projection: domain.ProjectionPublic},
	)
	if err != nil {
		return nil, s.updateError(err)
	}

	s.publish(ctx, events.ProfileUpdated, userID)
	return user, nil
}

var errEmptyAsset = errors.New("media host returned no url")

// upload treats a nil asset or an empty URL as a failed upload.
func (s *Service) upload(ctx context.Context, localPath string) (string, error) {
	asset, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return "", err
	}
	if asset == nil || asset.URL == "" {
		return "", errEmptyAsset
	}
	return asset.URL, nil
}

// inputError maps validator tags to a client message. Blank fields win over
// a malformed email.
func inputError(errs map[string]string) error {
	for _, tag := range errs {
		if tag == "notblank" {
			return apperr.Validation(msgAllFieldsRequired)
		}
	}
	if errs["email"] == "email" {
		return apperr.Validation(msgInvalidEmail)
	}
	return apperr.Validation(msgAllFieldsRequired)
}

func (s *Service) updateError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return apperr.NotFound(msgUserNotFound)
	case errors.Is(err, domain.ErrDuplicateUser):
		return apperr.Conflict(msgEmailTaken)
	case errors.Is(err, domain.ErrInvalidUserUpdate):
		return apperr.Wrap(apperr.KindValidation, msgInvalidAccountDetails, err)
	default:
		return apperr.Internal("Failed to update account", err)
	}
}

func (s *Service) publish(ctx context.Context, t events.Type, userID string) {
	if err := s.publisher.Publish(ctx, events.New(t, userID)); err != nil {
		s.log.Warn(ctx, "failed to publish account event", "type", string(t), "user_id", userID, "error", err)
	}
}

func (s *Service) hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	return string(b), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
