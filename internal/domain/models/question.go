package models

// Question - один шаг опроса. Пустой Options означает свободный ответ.
type Question struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

const InspirationIgnored = "Ignored"

// Questions одинаковы для всех комнат и задаются строго по порядку.
// Позиции ответов соответствуют полям StoryRequest.
var Questions = []Question{
	{Prompt: "Moral of the story"},
	{Prompt: "Main character name"},
	{Prompt: "Secondary character name"},
	{Prompt: "Story mode", Options: []string{"Classic", "Creative", "Innovative"}},
	{
		Prompt: "Story inspiration",
		Options: []string{
			InspirationIgnored,
			"Where the Wild Things Are",
			"The Very Hungry Caterpillar",
			"Charlotte's Web",
			"Harry Potter and the Sorcerer's Stone",
			"Goodnight Moon",
		},
	},
}

// BookDescriptions подмешиваются в промпт, когда выбрано вдохновение
var BookDescriptions = map[string]string{
	"Where the Wild Things Are":             "A boy named Max is sent to bed without supper, sails to an island of wild creatures, becomes their king and returns home to find his supper still warm.",
	"The Very Hungry Caterpillar":           "A tiny caterpillar eats through a growing pile of food day after day until it builds a cocoon and emerges as a beautiful butterfly.",
	"Charlotte's Web":                       "A pig named Wilbur is saved from slaughter by his friend Charlotte, a clever spider who writes words about him in her web.",
	"Harry Potter and the Sorcerer's Stone": "An orphan boy learns he is a wizard, goes to Hogwarts school, makes loyal friends and stops a dark wizard from stealing a magical stone.",
	"Goodnight Moon":                        "A little bunny says goodnight to everything in the great green room as it gets ready to fall asleep.",
}

// Accepts проверяет ответ по списку вариантов вопроса.
func (q Question) Accepts(answer string) bool {
	if answer == "" {
		return false
	}

	if len(q.Options) == 0 {
		return true
	}

	for _, opt := range q.Options {
		if opt == answer {
			return true
		}
	}

	return false
}
