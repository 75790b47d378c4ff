// Package mcp exposes the task commands as MCP tools over stdio, backed by
// the same coordinator the TUI uses: identical validation, optimistic
// updates and rollback semantics.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ldi/tend/internal/coordinator"
	"github.com/ldi/tend/internal/filter"
	"github.com/ldi/tend/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server.
func NewServer(coord *coordinator.Coordinator) *server.MCPServer {
	s := server.NewMCPServer("Tend", "0.1.0")

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("Reload the task list from the store and return it, optionally filtered."),
		mcp.WithString("filter", mcp.Description("Filter to apply: all, active or completed (defaults to all).")),
	), listTasksHandler(coord))

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a new task."),
		mcp.WithString("title", mcp.Description("Task title (must not be empty)"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
	), addTaskHandler(coord))

	s.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Toggle a task between active and completed."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), toggleTaskHandler(coord))

	s.AddTool(mcp.NewTool("edit_task",
		mcp.WithDescription("Change a task's title."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title (must not be empty)"), mcp.Required()),
	), editTaskHandler(coord))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(coord))

	s.AddTool(mcp.NewTool("clear_completed",
		mcp.WithDescription("Delete every completed task. Failed deletes leave their tasks in place."),
	), clearCompletedHandler(coord))

	s.AddTool(mcp.NewTool("task_counts",
		mcp.WithDescription("Return total, active and completed counts."),
	), taskCountsHandler(coord))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func listTasksHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f, err := models.ParseFilter(mcp.ParseString(request, "filter", string(models.FilterAll)))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := coord.Load(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		snapshot := coord.Tasks()
		data, err := json.Marshal(map[string]interface{}{
			"tasks":  filter.Visible(snapshot, f),
			"counts": filter.Counts(snapshot),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func addTaskHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		description := mcp.ParseString(request, "description", "")

		task, err := coord.Add(ctx, title, description)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(task)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func toggleTaskHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		if err := coord.Toggle(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s toggled", id)), nil
	}
}

func editTaskHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		title := mcp.ParseString(request, "title", "")
		if err := coord.Edit(ctx, id, title); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s updated", id)), nil
	}
}

func deleteTaskHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		if err := coord.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted", id)), nil
	}
}

func clearCompletedHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		affected := filter.Counts(coord.Tasks()).Completed
		if affected == 0 {
			return mcp.NewToolResultText("No completed tasks to clear"), nil
		}
		if err := coord.ClearCompleted(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cleared %d completed tasks", affected)), nil
	}
}

func taskCountsHandler(coord *coordinator.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		counts := filter.Counts(coord.Tasks())
		data, err := json.Marshal(counts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
