package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accounthub/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// MongoUserRepository is the document-store credential store. Documents use
// the same UUID string ids as the SQL store.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FullName     string    `bson:"fullName"`
	Avatar       string    `bson:"avatar"`
	CoverImage   string    `bson:"coverImage"`
	PasswordHash string    `bson:"password,omitempty"`
	RefreshToken string    `bson:"refreshToken,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		PasswordHash: d.PasswordHash,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

var documentFields = map[string]string{
	"full_name":     "fullName",
	"email":         "email",
	"avatar":        "avatar",
	"cover_image":   "coverImage",
	"password_hash": "password",
	"refresh_token": "refreshToken",
}

func mongoProjection(p domain.Projection) bson.M {
	switch p {
	case domain.ProjectionPublic:
		return bson.M{"password": 0, "refreshToken": 0}
	case domain.ProjectionNoPassword:
		return bson.M{"password": 0}
	default:
		return nil
	}
}

// EnsureIndexes creates the unique username and email indexes.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string, projection domain.Projection) (*domain.User, error) {
	opts := options.FindOne()
	if p := mongoProjection(projection); p != nil {
		opts.SetProjection(p)
	}

	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return doc.toDomain().Apply(projection), nil
}

func (r *MongoUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	email = domain.NormalizeEmail(email)

	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, domain.ErrUserNotFound
	}

	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"$or": or}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username or email: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoUserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:           u.ID,
		Username:     domain.NormalizeUsername(u.Username),
		Email:        domain.NormalizeEmail(u.Email),
		FullName:     strings.TrimSpace(u.FullName),
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		PasswordHash: u.PasswordHash,
		RefreshToken: u.RefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("create user: %w", err)
	}
	*u = *doc.toDomain()
	return nil
}

func (r *MongoUserRepository) Update(ctx context.Context, id string, fields domain.UserUpdate, opts domain.UpdateOptions) (*domain.User, error) {
	if !opts.SkipValidation {
		if err := validateUpdate(fields); err != nil {
			return nil, err
		}
	}

	cols := fields.Columns()
	if len(cols) == 0 {
		return r.FindByID(ctx, id, opts.Projection)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}
	for col, v := range cols {
		field := documentFields[col]
		// Secrets are omitempty; clearing one removes the key.
		if s, _ := v.(string); s == "" && (field == "password" || field == "refreshToken") {
			unset[field] = ""
			continue
		}
		set[field] = v
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	findOpts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if p := mongoProjection(opts.Projection); p != nil {
		findOpts.SetProjection(p)
	}

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, findOpts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toDomain().Apply(opts.Projection), nil
}

func (r *MongoUserRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	filter := bson.M{"_id": id, "refreshToken": expected}
	if expected == "" {
		filter = bson.M{"_id": id, "refreshToken": bson.M{"$in": bson.A{"", nil}}}
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	update := bson.M{"$set": set}
	if next == "" {
		update["$unset"] = bson.M{"refreshToken": ""}
	} else {
		set["refreshToken"] = next
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return domain.ErrRefreshTokenMismatch
}

func (r *MongoUserRepository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"refreshToken": bson.M{"$exists": true, "$ne": ""}},
		options.Find().SetProjection(bson.M{"_id": 1, "refreshToken": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.Session
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, domain.Session{UserID: doc.ID, RefreshToken: doc.RefreshToken})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}
