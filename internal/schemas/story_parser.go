package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"adventure-server/internal/models"
)

// ErrInvalidStory базовая ошибка для всех нарушений структуры ответа модели.
var ErrInvalidStory = errors.New("generated story is invalid")

// ValidationError описывает первое найденное нарушение с путем до поля,
// например "root.options[1].nextNode.content missing".
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return e.Path + " " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalidStory }

// Limits ограничения на размер дерева. Нулевое значение поля отключает проверку.
type Limits struct {
	MaxDepth int
	MaxNodes int
}

// DefaultLimits используются, если конфигурация не задает свои.
var DefaultLimits = Limits{MaxDepth: 10, MaxNodes: 200}

// StoryValidator разбирает сырой текст модели в дерево GeneratedStory.
// Результат либо полностью валиден, либо не возвращается вовсе.
type StoryValidator struct {
	limits Limits
}

// NewStoryValidator создает валидатор с заданными ограничениями.
func NewStoryValidator(limits Limits) *StoryValidator {
	return &StoryValidator{limits: limits}
}

// Validate проверяет raw и возвращает дерево или *ValidationError.
func (v *StoryValidator) Validate(raw string) (*models.GeneratedStory, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, &ValidationError{Reason: "response does not contain a JSON object"}
	}

	doc, err := decodeStrict(payload)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: "top-level value must be an object"}
	}

	title, err := requireString(obj, "title", "title")
	if err != nil {
		return nil, err
	}

	rawRoot, present := obj["rootNode"]
	if !present || rawRoot == nil {
		return nil, &ValidationError{Path: "rootNode", Reason: "missing"}
	}

	w := &treeWalker{limits: v.limits}
	root, err := w.node("root", rawRoot, 1)
	if err != nil {
		return nil, err
	}

	return &models.GeneratedStory{Title: title, Root: root}, nil
}

type treeWalker struct {
	limits Limits
	nodes  int
}

func (w *treeWalker) node(path string, raw any, depth int) (*models.GeneratedNode, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Path: path, Reason: "must be an object"}
	}
	if w.limits.MaxDepth > 0 && depth > w.limits.MaxDepth {
		return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("exceeds max depth %d", w.limits.MaxDepth)}
	}
	w.nodes++
	if w.limits.MaxNodes > 0 && w.nodes > w.limits.MaxNodes {
		return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("exceeds max node count %d", w.limits.MaxNodes)}
	}

	content, err := requireString(obj, "content", path+".content")
	if err != nil {
		return nil, err
	}
	isEnding, err := requireBool(obj, "isEnding", path+".isEnding")
	if err != nil {
		return nil, err
	}
	isWinning, err := requireBool(obj, "isWinningEnding", path+".isWinningEnding")
	if err != nil {
		return nil, err
	}
	if isWinning && !isEnding {
		return nil, &ValidationError{Path: path + ".isWinningEnding", Reason: "set on a non-ending node"}
	}

	var rawOptions []any
	if v, present := obj["options"]; present && v != nil {
		list, ok := v.([]any)
		if !ok {
			return nil, &ValidationError{Path: path + ".options", Reason: "must be an array"}
		}
		rawOptions = list
	}

	if isEnding && len(rawOptions) > 0 {
		return nil, &ValidationError{Path: path + ".options", Reason: "must be empty for an ending node"}
	}
	if !isEnding && len(rawOptions) == 0 {
		return nil, &ValidationError{Path: path + ".options", Reason: "must not be empty for a non-ending node"}
	}

	node := &models.GeneratedNode{
		Content:         content,
		IsEnding:        isEnding,
		IsWinningEnding: isWinning,
	}
	if len(rawOptions) == 0 {
		return node, nil
	}

	node.Options = make([]models.GeneratedOption, 0, len(rawOptions))
	for i, rawOpt := range rawOptions {
		optPath := fmt.Sprintf("%s.options[%d]", path, i)
		opt, ok := rawOpt.(map[string]any)
		if !ok {
			return nil, &ValidationError{Path: optPath, Reason: "must be an object"}
		}
		text, err := requireString(opt, "text", optPath+".text")
		if err != nil {
			return nil, err
		}
		next, present := opt["nextNode"]
		if !present || next == nil {
			return nil, &ValidationError{Path: optPath + ".nextNode", Reason: "missing"}
		}
		child, err := w.node(optPath+".nextNode", next, depth+1)
		if err != nil {
			return nil, err
		}
		node.Options = append(node.Options, models.GeneratedOption{Text: text, Next: child})
	}
	return node, nil
}

// requireString требует непустую строку.
func requireString(obj map[string]any, key, path string) (string, error) {
	v, present := obj[key]
	if !present || v == nil {
		return "", &ValidationError{Path: path, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Path: path, Reason: "must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Path: path, Reason: "must not be empty"}
	}
	return s, nil
}

func requireBool(obj map[string]any, key, path string) (bool, error) {
	v, present := obj[key]
	if !present || v == nil {
		return false, &ValidationError{Path: path, Reason: "missing"}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ValidationError{Path: path, Reason: "must be a boolean"}
	}
	return b, nil
}

// decodeStrict декодирует ровно одно JSON-значение без хвостовых данных.
func decodeStrict(payload string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return doc, nil
}

// extractJSONObject снимает markdown-обертку ```json ... ``` и окружающий текст.
// Сам JSON не исправляется.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
