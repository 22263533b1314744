package repository

import (
	"context"
	"errors"

	"docquiz/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInvalidID is returned for ids that are not 24-char hex ObjectIDs
var ErrInvalidID = errors.New("invalid id")

// DatabaseProvider resolves the database on every call so repositories always
// run against the connection manager's current connection.
type DatabaseProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

type QuestionRepo interface {
	CreateMany(ctx context.Context, questions []*model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Question, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Question, error)
	ListByDocument(ctx context.Context, userID, documentID string) ([]*model.Question, error)
	Delete(ctx context.Context, id string) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type questionRepo struct {
	db DatabaseProvider
}

func NewQuestionRepo(db DatabaseProvider) QuestionRepo {
	return &questionRepo{db: db}
}

func (r *questionRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection("questions"), nil
}

func (r *questionRepo) CreateMany(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	docs := make([]interface{}, len(questions))
	for i, q := range questions {
		if q.ID.IsZero() {
			q.ID = primitive.NewObjectID()
		}
		docs[i] = q
	}

	_, err = coll.InsertMany(ctx, docs)
	return err
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var question model.Question
	err = coll.FindOne(ctx, bson.M{"_id": objectID}).Decode(&question)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Question, error) {
	var objectIDs []primitive.ObjectID
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			// Unknown ids simply don't match.
			continue
		}
		objectIDs = append(objectIDs, objectID)
	}
	if len(objectIDs) == 0 {
		return []*model.Question{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
}

func (r *questionRepo) ListByUser(ctx context.Context, userID string) ([]*model.Question, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *questionRepo) ListByDocument(ctx context.Context, userID, documentID string) ([]*model.Question, error) {
	docID, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return nil, ErrInvalidID
	}
	return r.find(ctx, bson.M{"userId": userID, "documentId": docID})
}

func (r *questionRepo) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	_, err = coll.DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}

func (r *questionRepo) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	docID, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return 0, ErrInvalidID
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteMany(ctx, bson.M{"documentId": docID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *questionRepo) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "documentId", Value: 1}}},
	})
	return err
}

func (r *questionRepo) find(ctx context.Context, filter bson.M) ([]*model.Question, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	questions := make([]*model.Question, 0)
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
