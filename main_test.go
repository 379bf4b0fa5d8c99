package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

func TestTaskMarkdown(t *testing.T) {
	resp := &domain.TaskDetailResponse{
		Task: &domain.Task{ID: "t1", Title: "Plan trip", Status: domain.TaskStatusPending},
		Details: []domain.TaskDetail{
			{ID: "d1", TaskID: "t1", Content: "1. Book flights\n"},
			{ID: "d2", TaskID: "t1", Content: "- pack"},
		},
	}
	md := taskMarkdown(resp)
	assert.True(t, strings.HasPrefix(md, "# Plan trip\n"))
	assert.Contains(t, md, "## Note 1\n\n1. Book flights\n")
	assert.Contains(t, md, "## Note 2\n\n- pack")

	plain, err := renderTask(resp, true)
	require.NoError(t, err)
	assert.Equal(t, md, plain)

	rendered, err := renderTask(resp, false)
	require.NoError(t, err)
	assert.Contains(t, rendered, "Plan trip")

	resp.Details = nil
	assert.Contains(t, taskMarkdown(resp), "_No notes._")
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTasks(&buf, nil))
	assert.Equal(t, "No tasks.\n", buf.String())

	buf.Reset()
	require.NoError(t, printTasks(&buf, []domain.Task{
		{ID: "t1", Title: "Milk", Status: domain.TaskStatusCompleted, CreatedAt: time.Now()},
	}))
	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Milk")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "taskchat v"+version+"\n", buf.String())
}
