package models

// GeneratedStory провалидированный ответ модели: заголовок и дерево узлов.
// Узлы еще не имеют идентификаторов, их выдает построитель при сохранении.
type GeneratedStory struct {
	Title string
	Root  *GeneratedNode
}

// GeneratedNode узел провалидированного дерева.
type GeneratedNode struct {
	Content         string
	IsEnding        bool
	IsWinningEnding bool
	Options         []GeneratedOption
}

// GeneratedOption вариант выбора, ведущий к дочернему узлу.
type GeneratedOption struct {
	Text string
	Next *GeneratedNode
}

// NodeCount возвращает число узлов дерева.
func (s *GeneratedStory) NodeCount() int {
	if s == nil || s.Root == nil {
		return 0
	}
	return s.Root.count()
}

func (n *GeneratedNode) count() int {
	total := 1
	for _, opt := range n.Options {
		if opt.Next != nil {
			total += opt.Next.count()
		}
	}
	return total
}
