package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accounthub/internal/domain"
	"accounthub/internal/pkg/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserRepository is the SQL credential store (PostgreSQL or SQLite via gorm).
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	Username     string    `gorm:"column:username;size:64;not null;uniqueIndex:idx_users_username"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex:idx_users_email"`
	FullName     string    `gorm:"column:full_name;size:255;not null"`
	Avatar       string    `gorm:"column:avatar;not null"`
	CoverImage   string    `gorm:"column:cover_image;not null;default:''"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	RefreshToken string    `gorm:"column:refresh_token;not null;default:''"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

// Models lists the gorm models for AutoMigrate.
func Models() []any {
	return []any{&userModel{}}
}

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FullName:     m.FullName,
		Avatar:       m.Avatar,
		CoverImage:   m.CoverImage,
		PasswordHash: m.PasswordHash,
		RefreshToken: m.RefreshToken,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	return userModel{
		ID:           u.ID,
		Username:     domain.NormalizeUsername(u.Username),
		Email:        domain.NormalizeEmail(u.Email),
		FullName:     strings.TrimSpace(u.FullName),
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		PasswordHash: u.PasswordHash,
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func omitted(p domain.Projection) []string {
	switch p {
	case domain.ProjectionPublic:
		return []string{"password_hash", "refresh_token"}
	case domain.ProjectionNoPassword:
		return []string{"password_hash"}
	default:
		return nil
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string, projection domain.Projection) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}

	q := r.db.WithContext(ctx)
	if cols := omitted(projection); len(cols) > 0 {
		q = q.Omit(cols...)
	}

	var m userModel
	if err := q.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return toDomainUser(m).Apply(projection), nil
}

// FindByUsernameOrEmail matches either identifier; blank ones are ignored.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	email = domain.NormalizeEmail(email)

	q := r.db.WithContext(ctx)
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return nil, domain.ErrUserNotFound
	}

	var m userModel
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username or email: %w", err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("create user: %w", err)
	}
	*u = *toDomainUser(m)
	return nil
}

// Update writes the non-nil fields and returns the record as stored
// afterwards, in the requested projection.
func (r *UserRepository) Update(ctx context.Context, id string, fields domain.UserUpdate, opts domain.UpdateOptions) (*domain.User, error) {
	if !opts.SkipValidation {
		if err := validateUpdate(fields); err != nil {
			return nil, err
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}

	cols := fields.Columns()
	if len(cols) > 0 {
		cols["updated_at"] = time.Now().UTC()
		tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(cols)
		if tx.Error != nil {
			if isDuplicate(tx.Error) {
				return nil, domain.ErrDuplicateUser
			}
			return nil, fmt.Errorf("update user: %w", tx.Error)
		}
		if tx.RowsAffected == 0 {
			return nil, domain.ErrUserNotFound
		}
	}

	return r.FindByID(ctx, id, opts.Projection)
}

// SwapRefreshToken replaces the stored refresh token only while it still
// equals expected.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrUserNotFound
	}

	tx := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		Updates(map[string]any{
			"refresh_token": next,
			"updated_at":    time.Now().UTC(),
		})
	if tx.Error != nil {
		return fmt.Errorf("swap refresh token: %w", tx.Error)
	}
	if tx.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if count == 0 {
		return domain.ErrUserNotFound
	}
	return domain.ErrRefreshTokenMismatch
}

// ListSessions returns every user that currently holds a refresh token.
func (r *UserRepository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var rows []userModel
	err := r.db.WithContext(ctx).
		Select("id", "refresh_token").
		Where("refresh_token <> ''").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]domain.Session, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.Session{UserID: m.ID, RefreshToken: m.RefreshToken})
	}
	return out, nil
}

func validateUpdate(fields domain.UserUpdate) error {
	if errs := validator.Validate(fields); len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidUserUpdate, errs)
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
