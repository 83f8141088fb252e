package models

import (
	"time"

	"github.com/google/uuid"
)

// Story корневая запись сгенерированного дерева.
type Story struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	SessionID string    `json:"session_id" db:"session_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StoryOption ссылка из узла на дочерний узел той же истории.
type StoryOption struct {
	Text   string    `json:"text"`
	NodeID uuid.UUID `json:"node_id"`
}

// StoryNode узел дерева. Неизменяем после создания.
type StoryNode struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	StoryID         uuid.UUID     `json:"-" db:"story_id"`
	Content         string        `json:"content" db:"content"`
	IsRoot          bool          `json:"is_root" db:"is_root"`
	IsEnding        bool          `json:"is_ending" db:"is_ending"`
	IsWinningEnding bool          `json:"is_winning_ending" db:"is_winning_ending"`
	Options         []StoryOption `json:"options" db:"options"`
}

// StoryTree история вместе со всеми узлами в порядке pre-order обхода.
// Nodes[0] всегда корень.
type StoryTree struct {
	Story Story
	Nodes []StoryNode
}

// Root возвращает корневой узел или nil.
func (t *StoryTree) Root() *StoryNode {
	for i := range t.Nodes {
		if t.Nodes[i].IsRoot {
			return &t.Nodes[i]
		}
	}
	return nil
}

// CompleteStory полное представление истории для клиента.
type CompleteStory struct {
	ID        uuid.UUID               `json:"id"`
	Title     string                  `json:"title"`
	SessionID string                  `json:"session_id"`
	CreatedAt time.Time               `json:"created_at"`
	RootNode  StoryNode               `json:"root_node"`
	AllNodes  map[uuid.UUID]StoryNode `json:"all_nodes"`
}
