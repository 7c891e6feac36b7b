package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/repository"
)

const emailIndexName = "email_unique"

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Age      int                `bson:"age"`
	IsActive bool               `bson:"is_active"`
}

func (d userDocument) toEntity() entity.User {
	return entity.User{ID: d.ID.Hex(), Name: d.Name, Email: d.Email, Age: d.Age, IsActive: d.IsActive}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	doc := userDocument{Name: u.Name, Email: u.Email, Age: u.Age, IsActive: u.IsActive}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	u.ID = oid.Hex()
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	var doc userDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u := doc.toEntity()
	return &u, nil
}

func (r *UserRepository) Find(ctx context.Context, f entity.ListFilter, p entity.Page) ([]entity.User, error) {
	opts := options.Find().
		SetSort(ListSort()).
		SetSkip(int64(p.Skip())).
		SetLimit(int64(p.Limit))

	cur, err := r.coll.Find(ctx, ListQuery(f), opts)
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]entity.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	update := bson.D{{Key: "$set", Value: SetDocument(patch)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, repository.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, repository.ErrDuplicateEmail
		}
		return nil, err
	}
	u := doc.toEntity()
	return &u, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("parse id: %w", err)
	}
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(emailIndexName),
	})
	return err
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// ListQuery translates a filter into a find document. The name query is
// escaped so user text matches literally, case-insensitively.
func ListQuery(f entity.ListFilter) bson.D {
	q := bson.D{}
	if f.Query != "" {
		q = append(q, bson.E{Key: "name", Value: primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}})
	}
	if f.MinAge != nil || f.MaxAge != nil {
		age := bson.D{}
		if f.MinAge != nil {
			age = append(age, bson.E{Key: "$gte", Value: *f.MinAge})
		}
		if f.MaxAge != nil {
			age = append(age, bson.E{Key: "$lte", Value: *f.MaxAge})
		}
		q = append(q, bson.E{Key: "age", Value: age})
	}
	if f.IsActive != nil {
		q = append(q, bson.E{Key: "is_active", Value: *f.IsActive})
	}
	return q
}

// ListSort orders by name, breaking ties on _id so pages are stable.
func ListSort() bson.D {
	return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
}

// SetDocument renders the provided patch fields as a $set body in key order.
func SetDocument(patch entity.UserPatch) bson.D {
	fields := patch.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	set := make(bson.D, 0, len(keys))
	for _, k := range keys {
		set = append(set, bson.E{Key: k, Value: fields[k]})
	}
	return set
}

var _ repository.UserRepository = (*UserRepository)(nil)
