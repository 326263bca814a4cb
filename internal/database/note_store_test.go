package database

import (
	"context"
	"testing"

	"github.com/deepdey/notebook-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestNoteStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := "notebook." + NotesCollection
	owner := primitive.NewObjectID()

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "user", Value: owner}, {Key: "title", Value: "b"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "user", Value: owner}, {Key: "title", Value: "a"}},
		))

		notes, err := NewNoteStore(mt.DB).List(ctx, owner)
		require.NoError(mt, err)
		require.Len(mt, notes, 2)
		assert.Equal(mt, "b", notes[0].Title)
	})

	mt.Run("list empty is not nil", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		notes, err := NewNoteStore(mt.DB).List(ctx, owner)
		require.NoError(mt, err)
		assert.NotNil(mt, notes)
		assert.Empty(mt, notes)
	})

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		note := &models.Note{Owner: owner, Title: "t", Content: "c"}
		require.NoError(mt, NewNoteStore(mt.DB).Create(ctx, note))
		assert.False(mt, note.ID.IsZero())
	})

	mt.Run("update", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: id},
				{Key: "user", Value: owner},
				{Key: "title", Value: "new"},
				{Key: "content", Value: "body"},
			}},
		})

		note, err := NewNoteStore(mt.DB).Update(ctx, owner, id, "new", "body")
		require.NoError(mt, err)
		assert.Equal(mt, "new", note.Title)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		_, err := NewNoteStore(mt.DB).Update(ctx, owner, primitive.NewObjectID(), "t", "c")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewNoteStore(mt.DB).Get(ctx, owner, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
