package render

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// StageStatus 阶段状态
type StageStatus string

const (
	StageStatusCompleted StageStatus = "completed"
	StageStatusSkipped   StageStatus = "skipped"
	StageStatusFailed    StageStatus = "failed"
)

// StageRecord 单个阶段的执行记录
type StageRecord struct {
	Name       string      `bson:"name" json:"name"`
	Status     StageStatus `bson:"status" json:"status"`
	Error      string      `bson:"error,omitempty" json:"error,omitempty"`
	StartedAt  time.Time   `bson:"started_at" json:"started_at"`
	DurationMs int64       `bson:"duration_ms" json:"duration_ms"`
}

// Job 渲染任务
// 说明：一次 render 命令对应一条记录，阶段记录按执行顺序追加
type Job struct {
	ID         string        `bson:"id" json:"id"`                                   // 任务ID（UUID）
	Artist     string        `bson:"artist" json:"artist"`                           // 歌手
	Title      string        `bson:"title" json:"title"`                             // 歌名
	Slug       string        `bson:"slug" json:"slug"`                               // 文件名前缀
	Status     JobStatus     `bson:"status" json:"status"`                           // running, completed, failed
	Stages     []StageRecord `bson:"stages" json:"stages"`                           // 阶段记录
	OutputPath string        `bson:"output_path,omitempty" json:"output_path,omitempty"` // 本地视频路径
	URL        string        `bson:"url,omitempty" json:"url,omitempty"`             // 发布后的访问URL
	Error      string        `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
	FinishedAt *time.Time    `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

// Collection 返回集合名称
func (j *Job) Collection() string {
	return "render_jobs"
}

// EnsureIndexes 创建和维护索引
func (j *Job) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(j.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("uk_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
		{
			Keys:    bson.D{{Key: "slug", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_slug_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// Duration 任务总耗时（未结束时为 0）
func (j *Job) Duration() time.Duration {
	if j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}
