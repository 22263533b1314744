package repository

import (
	"context"
	"time"

	"docquiz/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentRepo handles MongoDB operations for uploaded documents
type DocumentRepo interface {
	Create(ctx context.Context, doc *model.Document) (string, error)
	GetByID(ctx context.Context, id string) (*model.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Document, error)
	Delete(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

type documentRepo struct {
	db DatabaseProvider
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(db DatabaseProvider) DocumentRepo {
	return &documentRepo{db: db}
}

func (r *documentRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection("documents"), nil
}

func (r *documentRepo) Create(ctx context.Context, doc *model.Document) (string, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return "", err
	}

	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc model.Document
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) ListByUser(ctx context.Context, userID string) ([]*model.Document, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	// Listing never needs the full text.
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"content": 0})
	cursor, err := coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]*model.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	_, err = coll.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *documentRepo) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}
