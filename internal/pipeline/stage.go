package pipeline

import "fmt"

// Stage 流水线阶段
type Stage string

const (
	StageDownload   Stage = "download"
	StageLyrics     Stage = "lyrics"
	StageBackground Stage = "background"
	StageImages     Stage = "images"
	StageRender     Stage = "render"
	StagePublish    Stage = "publish"
)

// Stages 执行顺序
var Stages = []Stage{StageDownload, StageLyrics, StageBackground, StageImages, StageRender, StagePublish}

// StageError 阶段失败
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
