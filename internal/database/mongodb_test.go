package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func createIndexesTargets(mt *mtest.T) []string {
	var targets []string
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == "createIndexes" {
			targets = append(targets, evt.Command.Lookup("createIndexes").StringValue())
		}
	}
	return targets
}

func TestCreateIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("notifications first and failure is fatal", func(mt *mtest.T) {
		db := &MongoDB{Client: mt.Client, Database: mt.DB}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    86,
			Message: "An equivalent index already exists with a different name and options",
		}))

		err := db.CreateIndexes(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), NotificationsCollection)
		assert.Equal(mt, []string{NotificationsCollection}, createIndexesTargets(mt))
	})

	mt.Run("catalog failures are not fatal", func(mt *mtest.T) {
		db := &MongoDB{Client: mt.Client, Database: mt.DB}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "not authorized on exams"}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(mt, db.CreateIndexes(context.Background()))
		assert.Equal(mt,
			[]string{NotificationsCollection, ExamsCollection, DeadlinesCollection, UsersCollection},
			createIndexesTargets(mt))
	})
}
