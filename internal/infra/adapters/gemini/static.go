package gemini

import (
	"context"
	"encoding/json"

	"github.com/qrave1/TaleRoom/internal/domain/models"
)

// Static отвечает заранее заданным текстом. Используется при
// GENERATOR_BACKEND=static, когда ключа к внешнему API нет.
type Static struct {
	Story models.Story
	Label string
}

func NewStatic() *Static {
	return &Static{
		Story: models.Story{
			Title: "The Shared Tale",
			Story: "Once upon a time a group of friends wrote a story together, one answer at a time.",
		},
		Label: "object",
	}
}

func (s *Static) Generate(_ context.Context, prompt models.Prompt) (string, error) {
	if !prompt.JSON {
		return s.Label, nil
	}

	data, err := json.Marshal(s.Story)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
