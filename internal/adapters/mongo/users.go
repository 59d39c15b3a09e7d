package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewUserRepository(db *mongo.Database, logger observability.Logger) *UserRepository {
	return &UserRepository{
		coll:   db.Collection("users"),
		logger: logger,
	}
}

func (u *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := u.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

func (u *UserRepository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := u.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		u.logger.WithError(err).Error("failed to insert user")
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (u *UserRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return u.findOne(ctx, bson.M{"email": email})
}

func (u *UserRepository) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

func (u *UserRepository) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var user domain.User
	err := u.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "find user")
	}
	return user, nil
}

func (u *UserRepository) UpdateUser(ctx context.Context, email string, upd auth.UserUpdate) (domain.User, error) {
	set := bson.M{}
	if upd.Name != "" {
		set["name"] = upd.Name
	}
	if upd.PasswordHash != "" {
		set["password"] = upd.PasswordHash
	}
	if upd.Role != "" {
		set["role"] = upd.Role
	}
	if len(set) == 0 {
		return u.FindUserByEmail(ctx, email)
	}

	var user domain.User
	err := u.coll.FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "update user")
	}
	return user, nil
}
