package comfyui

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// Workflow ComfyUI API 格式的工作流（节点ID -> 节点）
type Workflow map[string]any

// LoadWorkflow 加载工作流 JSON 模板
func LoadWorkflow(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read workflow %s: %v", errs.ErrInvalidInput, path, err)
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: parse workflow %s: %v", errs.ErrInvalidInput, path, err)
	}
	if len(wf) == 0 {
		return nil, fmt.Errorf("%w: workflow %s has no nodes", errs.ErrInvalidInput, path)
	}
	return wf, nil
}

// Clone 深拷贝工作流，模板可以复用
func (w Workflow) Clone() Workflow {
	data, err := json.Marshal(w)
	if err != nil {
		return w
	}
	var out Workflow
	if err := json.Unmarshal(data, &out); err != nil {
		return w
	}
	return out
}

// SetPositivePrompt 替换正向提示词
// 优先使用 _meta.title 含 Positive 的 CLIPTextEncode 节点，其次是第一个 CLIPTextEncode 节点
func (w Workflow) SetPositivePrompt(prompt string) bool {
	var fallback map[string]any
	for _, id := range sortedIDs(w) {
		node := w.node(id)
		if node == nil || node["class_type"] != "CLIPTextEncode" {
			continue
		}
		meta, _ := node["_meta"].(map[string]any)
		title, _ := meta["title"].(string)
		if strings.Contains(title, "Positive") {
			return setInput(node, "text", prompt)
		}
		if fallback == nil && !strings.Contains(title, "Negative") {
			fallback = node
		}
	}
	if fallback == nil {
		log.Warn().Msg("未找到正向提示节点，跳过替换")
		return false
	}
	return setInput(fallback, "text", prompt)
}

// SetImageSize 设置 EmptyLatentImage 节点的宽高
func (w Workflow) SetImageSize(width, height int) bool {
	changed := false
	for _, id := range sortedIDs(w) {
		node := w.node(id)
		if node == nil || node["class_type"] != "EmptyLatentImage" {
			continue
		}
		if setInput(node, "width", width) && setInput(node, "height", height) {
			changed = true
		}
	}
	return changed
}

func (w Workflow) node(id string) map[string]any {
	node, _ := w[id].(map[string]any)
	return node
}

func setInput(node map[string]any, key string, value any) bool {
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return false
	}
	inputs[key] = value
	return true
}

// sortedIDs 节点ID排序，保证选择结果稳定
func sortedIDs(w Workflow) []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return strings.Compare(a, b)
	})
	return ids
}
