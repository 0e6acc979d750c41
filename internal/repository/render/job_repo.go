package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lyricvid/internal/model/render"
	"lyricvid/internal/pkg/errs"
)

// JobRepository 渲染任务仓库接口
type JobRepository interface {
	Create(ctx context.Context, job *render.Job) error
	AppendStage(ctx context.Context, id string, rec render.StageRecord) error
	Finish(ctx context.Context, id string, status render.JobStatus, outputPath, url, errMsg string) error
	FindByID(ctx context.Context, id string) (*render.Job, error)
	FindRecent(ctx context.Context, limit int64) ([]*render.Job, error)
}

// JobRepo 渲染任务仓库实现
type JobRepo struct {
	coll *mongo.Collection
}

// NewJobRepo 创建渲染任务仓库
func NewJobRepo(db *mongo.Database) *JobRepo {
	var j render.Job
	return &JobRepo{coll: db.Collection(j.Collection())}
}

// Create 创建任务记录
func (r *JobRepo) Create(ctx context.Context, job *render.Job) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = render.JobStatusRunning
	}
	if job.Stages == nil {
		job.Stages = []render.StageRecord{}
	}
	if _, err := r.coll.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("%w: insert job: %v", errs.ErrNetwork, err)
	}
	return nil
}

// AppendStage 追加阶段记录
func (r *JobRepo) AppendStage(ctx context.Context, id string, rec render.StageRecord) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{
			"$push": bson.M{"stages": rec},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("%w: append stage: %v", errs.ErrNetwork, err)
	}
	return nil
}

// Finish 结束任务
func (r *JobRepo) Finish(ctx context.Context, id string, status render.JobStatus, outputPath, url, errMsg string) error {
	now := time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"status":      status,
			"output_path": outputPath,
			"url":         url,
			"error":       errMsg,
			"finished_at": now,
			"updated_at":  now,
		}},
	)
	if err != nil {
		return fmt.Errorf("%w: finish job: %v", errs.ErrNetwork, err)
	}
	return nil
}

// FindByID 根据ID查询任务
func (r *JobRepo) FindByID(ctx context.Context, id string) (*render.Job, error) {
	var j render.Job
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&j); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: job %s", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: find job: %v", errs.ErrNetwork, err)
	}
	return &j, nil
}

// FindRecent 查询最近的任务（按创建时间倒序）
func (r *JobRepo) FindRecent(ctx context.Context, limit int64) ([]*render.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find jobs: %v", errs.ErrNetwork, err)
	}
	defer cursor.Close(ctx)

	var jobs []*render.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("%w: decode jobs: %v", errs.ErrNetwork, err)
	}
	return jobs, nil
}
