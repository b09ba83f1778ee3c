package usecase

import (
	"fmt"
	"strings"

	"github.com/qrave1/TaleRoom/internal/domain/models"
)

const storyReadingMinutes = 2

// buildStoryPrompt собирает текст запроса к генератору. pick выбирает один
// интерес из n доступных.
func buildStoryPrompt(req models.StoryRequest, pick func(n int) int) string {
	var sb strings.Builder

	sb.WriteString("You are a creative story writer tasked with crafting engaging children's stories.\n")
	fmt.Fprintf(
		&sb,
		"Create a captivating children's story for a group of %s aged %s years. "+
			"The story should be approximately %d minutes long, focusing on the moral: '%s'.\n",
		strings.Join(req.Genders, ", "),
		joinInts(req.Ages),
		storyReadingMinutes,
		req.MoralOfTheStory,
	)
	fmt.Fprintf(
		&sb,
		"The story mode should be %s. The main character will be named '%s', with a secondary character named '%s'.\n",
		req.Mode,
		req.MainCharacterName,
		req.SecondaryCharacterName,
	)

	if len(req.Interests) > 0 {
		fmt.Fprintf(
			&sb,
			"The children are interested in %s. Feel free to incorporate this interest, "+
				"but make sure it is naturally fit within the story's context.\n",
			req.Interests[pick(len(req.Interests))],
		)
	}

	if req.StoryInspiration != models.InspirationIgnored {
		fmt.Fprintf(&sb, "The story should be inspired by '%s' children book.", req.StoryInspiration)

		if desc, ok := models.BookDescriptions[req.StoryInspiration]; ok {
			fmt.Fprintf(&sb, " Here is the book description: %s.", desc)
		}

		sb.WriteString("\n")
	}

	sb.WriteString(`
The output should be in JSON format with the following keys:
- "title": the title of the story
- "story": the full story

Example format:
{
    "title": <the story title>,
    "story": <the full story>
}

Provide only the JSON output without any additional text or explanation.`)

	return sb.String()
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}

	return strings.Join(parts, ", ")
}
