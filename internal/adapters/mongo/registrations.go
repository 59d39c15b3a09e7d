package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/registration"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RegistrationRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewRegistrationRepository(db *mongo.Database, logger observability.Logger) *RegistrationRepository {
	return &RegistrationRepository{
		coll:   db.Collection("registrations"),
		logger: logger,
	}
}

// EnsureIndexes creates the unique ticketId index the finalize flow relies on.
func (r *RegistrationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ticketId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("ticketId_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "date", Value: -1}}, Options: options.Index().SetName("email_date")},
		{Keys: bson.D{{Key: "date", Value: -1}}, Options: options.Index().SetName("date_desc")},
	})
	return err
}

func (r *RegistrationRepository) Create(ctx context.Context, reg domain.Registration) error {
	defer observe("create")()
	_, err := r.coll.InsertOne(ctx, reg)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		r.logger.WithError(err).WithField("ticket_id", reg.TicketID).Error("failed to insert registration")
		return errors.Wrap(err, "insert registration")
	}
	return nil
}

func (r *RegistrationRepository) FindByTicket(ctx context.Context, ticketID string) (domain.Registration, error) {
	defer observe("find_by_ticket")()
	var reg domain.Registration
	err := r.coll.FindOne(ctx, bson.M{"ticketId": ticketID}).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Registration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, errors.Wrap(err, "find registration")
	}
	return reg, nil
}

func (r *RegistrationRepository) FindByEmail(ctx context.Context, email string) ([]domain.Registration, error) {
	defer observe("find_by_email")()
	return r.find(ctx, bson.M{"email": email})
}

func (r *RegistrationRepository) List(ctx context.Context) ([]domain.Registration, error) {
	defer observe("list")()
	return r.find(ctx, bson.M{})
}

func (r *RegistrationRepository) find(ctx context.Context, filter bson.M) ([]domain.Registration, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find registrations")
	}
	regs := []domain.Registration{}
	if err := cur.All(ctx, &regs); err != nil {
		return nil, errors.Wrap(err, "decode registrations")
	}
	return regs, nil
}

func (r *RegistrationRepository) Update(ctx context.Context, ticketID string, upd registration.Update) (domain.Registration, error) {
	defer observe("update")()
	set := bson.M{}
	if upd.PaymentStatus != "" {
		set["paymentStatus"] = upd.PaymentStatus
	}
	if upd.PaymentID != "" {
		set["paymentId"] = upd.PaymentID
	}
	if upd.EventID != "" {
		set["eventId"] = upd.EventID
	}
	if len(set) == 0 {
		return r.FindByTicket(ctx, ticketID)
	}

	var reg domain.Registration
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"ticketId": ticketID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Registration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, errors.Wrap(err, "update registration")
	}
	return reg, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	defer observe("delete")()
	res, err := r.coll.DeleteOne(ctx, bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"ticketId": id}}})
	if err != nil {
		return errors.Wrap(err, "delete registration")
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int64, error) {
	defer observe("delete_all")()
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "delete registrations")
	}
	return res.DeletedCount, nil
}
