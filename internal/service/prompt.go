package service

import (
	"encoding/json"
	"strings"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

const systemPromptTemplate = `You are a concise task-tracking assistant. You change the user's task list only by calling tools.

## Tools

1. **createTasks** returns ` + "`{ createdTasks: [{ id, title }] }`" + `.
2. **attachDetails** attaches notes using the ids returned by createTasks. Call it once for all new tasks.
3. **attachDetail** adds a follow-up note to an existing task. Do not use it right after creating tasks.
4. **completeTasks** marks tasks done by id, taken from the current task list.

## Rules

- One task per topic. Sub-steps belong in the task's note, not in separate tasks.
- Titles are short noun phrases of at most 8 words.
- After createTasks, call attachDetails exactly once with every returned id.
- Write notes in markdown: numbered steps, bullet sub-points, bold key terms.
- After tool calls, reply with a short summary and one link per task: ` + "`[Title](/tasks/ID)`" + `.
- Never describe what you would do. Call the tool.
- Match completion requests to ids in the current task list. Ask when the match is ambiguous.

## Current tasks
`

type promptTask struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Status domain.TaskStatus `json:"status"`
}

// buildSystemPrompt embeds the current task list so the model always sees live ids.
func buildSystemPrompt(tasks []domain.Task) string {
	list := make([]promptTask, 0, len(tasks))
	for _, t := range tasks {
		list = append(list, promptTask{ID: t.ID, Title: t.Title, Status: t.Status})
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		data = []byte("[]")
	}

	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)
	sb.Write(data)
	return sb.String()
}
