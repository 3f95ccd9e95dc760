package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/journalport/internal/tasks"
)

// RunTaskRequest carries the optional knobs of a maintenance task. Fields a
// task does not use are ignored.
type RunTaskRequest struct {
	RetentionDays     int `json:"retention_days,omitempty" form:"retention_days"`
	StaleAfterMinutes int `json:"stale_after_minutes,omitempty" form:"stale_after_minutes"`
}

type maintenanceTask struct {
	description string
	build       func(RunTaskRequest) backlite.Task
}

// maintenanceTasks can be triggered by hand. Import and export tasks are
// only created through the jobs API.
var maintenanceTasks = map[string]maintenanceTask{
	tasks.CleanupExportsTask{}.Config().Name: {
		description: "Remove expired export archives and leftover import files, fail stale running jobs",
		build: func(req RunTaskRequest) backlite.Task {
			return tasks.CleanupExportsTask{RetentionDays: req.RetentionDays, StaleAfterMinutes: req.StaleAfterMinutes}
		},
	},
	tasks.CleanupAuditEventsTask{}.Config().Name: {
		description: "Delete audit events past the retention period",
		build: func(req RunTaskRequest) backlite.Task {
			return tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}
		},
	},
}

// TaskTypeInfo describes one queue.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	MaxAttempts int    `json:"max_attempts"`
	Timeout     string `json:"timeout"`
	Manual      bool   `json:"manual"`
}

// TasksController exposes the task queue.
type TasksController struct {
	client *tasks.Client
}

func NewTasksController(client *tasks.Client) *TasksController {
	return &TasksController{client: client}
}

// ListTaskTypes handles GET /api/tasks/types.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	jobTimeout := tc.client.Config().JobTimeout.String()
	types := []TaskTypeInfo{
		transferTaskInfo(tasks.ImportTask{}.Config(), "Run a pending import job", jobTimeout),
		transferTaskInfo(tasks.ExportTask{}.Config(), "Run a pending export job", jobTimeout),
	}

	names := make([]string, 0, len(maintenanceTasks))
	for name := range maintenanceTasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		task := maintenanceTasks[name]
		cfg := task.build(RunTaskRequest{}).Config()
		types = append(types, TaskTypeInfo{
			Type:        name,
			Description: task.description,
			MaxAttempts: cfg.MaxAttempts,
			Timeout:     cfg.Timeout.String(),
			Manual:      true,
		})
	}

	c.JSON(http.StatusOK, gin.H{"task_types": types})
}

func transferTaskInfo(cfg backlite.QueueConfig, description, timeout string) TaskTypeInfo {
	return TaskTypeInfo{Type: cfg.Name, Description: description, MaxAttempts: cfg.MaxAttempts, Timeout: timeout}
}

// GetTaskStatus handles GET /api/tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "task_status_failed", err.Error())
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": taskID, "status": taskStatusToString(status)})
}

// RunTask handles POST /api/tasks/:type/run.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")
	task, ok := maintenanceTasks[taskType]
	if !ok {
		respondError(c, http.StatusBadRequest, "unknown_task", "unknown task type: "+taskType)
		return
	}

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}
	if req.RetentionDays < 0 || req.StaleAfterMinutes < 0 {
		respondBadRequest(c, "retention_days and stale_after_minutes must not be negative")
		return
	}

	ids, err := tc.client.Add(task.build(req)).Save()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "enqueue_failed", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": ids[0],
		"type":    taskType,
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
