package database

import (
	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// overlayPath - путь к записи пользователя в оверлее, например read_by.<hex>.
func overlayPath(overlay store.Overlay, userHex string) string {
	return string(overlay) + "." + userHex
}

// visibilityMatch - все условия видимости. Поток проверяется через exam_id $in:
// список экзаменов потока приходит из каталога, join с коллекцией exams не нужен.
func visibilityMatch(q store.VisibilityQuery) bson.D {
	uid := q.UserID.Hex()

	match := bson.D{
		{Key: "exam_id", Value: bson.D{{Key: "$in", Value: q.ExamIDs()}}},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: q.Now}}},
		{Key: overlayPath(store.OverlayDeleted, uid), Value: bson.D{{Key: "$exists", Value: false}}},
	}
	if q.Type != "" {
		match = append(match, bson.E{Key: "type", Value: q.Type})
	}
	if q.UnreadOnly {
		match = append(match, bson.E{Key: overlayPath(store.OverlayRead, uid), Value: bson.D{{Key: "$exists", Value: false}}})
	}
	return match
}

// priorityRankExpr повторяет models.Priority.Rank на стороне базы.
func priorityRankExpr() bson.D {
	return bson.D{{Key: "$switch", Value: bson.D{
		{Key: "branches", Value: bson.A{
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$priority", models.PriorityHigh}}}},
				{Key: "then", Value: 0},
			},
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$priority", models.PriorityMedium}}}},
				{Key: "then", Value: 1},
			},
		}},
		{Key: "default", Value: 2},
	}}}
}

// visibilityPipeline - общая часть для списка и счетчика.
func visibilityPipeline(q store.VisibilityQuery) mongo.Pipeline {
	uid := q.UserID.Hex()

	return mongo.Pipeline{
		{{Key: "$match", Value: visibilityMatch(q)}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "is_read", Value: bson.D{{Key: "$ne", Value: bson.A{
				bson.D{{Key: "$type", Value: "$" + overlayPath(store.OverlayRead, uid)}},
				"missing",
			}}}},
			{Key: "priority_rank", Value: priorityRankExpr()},
		}}},
	}
}

// listPipeline добавляет сортировку и убирает служебные поля и чужие оверлеи.
func listPipeline(q store.VisibilityQuery) mongo.Pipeline {
	return append(visibilityPipeline(q),
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "priority_rank", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "priority_rank", Value: 0},
			{Key: "read_by", Value: 0},
			{Key: "deleted_by", Value: 0},
		}}},
	)
}

func countPipeline(q store.VisibilityQuery) mongo.Pipeline {
	return append(visibilityPipeline(q), bson.D{{Key: "$count", Value: "total"}})
}
