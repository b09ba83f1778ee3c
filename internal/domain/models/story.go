package models

import (
	"fmt"
	"strings"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
)

// StoryRequest - структурированный запрос к генератору.
// Ответы раскладываются по полям в порядке Questions.
type StoryRequest struct {
	Ages                   []int    `json:"ages"`
	Genders                []string `json:"genders"`
	Interests              []string `json:"interests"`
	MoralOfTheStory        string   `json:"moral_of_the_story"`
	MainCharacterName      string   `json:"main_character_name"`
	SecondaryCharacterName string   `json:"secondary_character_name"`
	Mode                   string   `json:"mode"`
	StoryInspiration       string   `json:"story_inspiration"`
}

func NewStoryRequest(answers []string, profiles []*User) (StoryRequest, error) {
	if len(answers) != len(Questions) {
		return StoryRequest{}, apperr.Newf(apperr.GenerationFailed, "expected %d answers, got %d", len(Questions), len(answers))
	}

	for i, a := range answers {
		if strings.TrimSpace(a) == "" {
			return StoryRequest{}, apperr.Newf(apperr.GenerationFailed, "answer for %q is missing", Questions[i].Prompt)
		}
	}

	req := StoryRequest{
		Ages:                   make([]int, 0, len(profiles)),
		Genders:                make([]string, 0, len(profiles)),
		Interests:              make([]string, 0, len(profiles)),
		MoralOfTheStory:        answers[0],
		MainCharacterName:      answers[1],
		SecondaryCharacterName: answers[2],
		Mode:                   answers[3],
		StoryInspiration:       answers[4],
	}

	for _, p := range profiles {
		req.Ages = append(req.Ages, p.Age)
		req.Genders = append(req.Genders, p.Gender)
		req.Interests = append(req.Interests, p.Interests...)
	}

	return req, nil
}

type Story struct {
	Title string `json:"title"`
	Story string `json:"story"`
}

func (s Story) Validate() error {
	if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Story) == "" {
		return fmt.Errorf("story without title or body")
	}

	return nil
}
