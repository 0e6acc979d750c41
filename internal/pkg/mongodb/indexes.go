package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"lyricvid/internal/model/render"
)

// EnsureIndexes 创建所有模型的索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return EnsureAllIndexes(ctx, db, &render.Job{})
}
