package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deepdey/notebook-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const NotesCollection = "notes"

// NoteStore persists notes in MongoDB. Every query is scoped by owner.
type NoteStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewNoteStore(db *mongo.Database) *NoteStore {
	return &NoteStore{coll: db.Collection(NotesCollection), now: time.Now}
}

func ensureNoteIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("user_created_at"),
	})
	return err
}

// List returns the owner's notes, newest first.
func (s *NoteStore) List(ctx context.Context, owner primitive.ObjectID) ([]models.Note, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.coll.Find(ctx, bson.M{"user": owner}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	defer cursor.Close(ctx)

	notes := []models.Note{}
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return notes, nil
}

func (s *NoteStore) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error) {
	var note models.Note
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "user": owner}).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}
	return &note, nil
}

func (s *NoteStore) Create(ctx context.Context, note *models.Note) error {
	now := s.now()
	note.ID = primitive.NewObjectID()
	note.CreatedAt = now
	note.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, note); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Update sets title and content and returns the updated note.
func (s *NoteStore) Update(ctx context.Context, owner, id primitive.ObjectID, title, content string) (*models.Note, error) {
	update := bson.M{"$set": bson.M{
		"title":     title,
		"content":   content,
		"updatedAt": s.now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var note models.Note
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "user": owner}, update, opts).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return &note, nil
}

// Delete removes the note and returns what was deleted.
func (s *NoteStore) Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error) {
	var note models.Note
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "user": owner}).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete note: %w", err)
	}
	return &note, nil
}
