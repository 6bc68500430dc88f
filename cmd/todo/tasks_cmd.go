package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/jrsteele09/go-todo-client/internal/utils"
	"github.com/jrsteele09/go-todo-client/session"
	"github.com/jrsteele09/go-todo-client/tasks"
)

func cmdTasks(ctx context.Context, manager *session.Manager, logger zerolog.Logger, args []string) error {
	svc, err := tasks.NewService(manager.Pipeline())
	if err != nil {
		return err
	}
	store, err := tasks.NewStore(svc, tasks.WithLogger(logger))
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		return listTasks(ctx, store)
	case "add":
		return addTask(ctx, store, args[1:])
	case "done":
		return toggleTask(ctx, store, args[1:])
	case "rm":
		return removeTask(ctx, store, args[1:])
	default:
		return fmt.Errorf("unknown tasks command %q", args[0])
	}
}

func listTasks(ctx context.Context, store *tasks.Store) error {
	if err := store.Refresh(ctx); err != nil {
		return err
	}
	list := store.Tasks()
	if len(list) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, task := range list {
		marker := " "
		if task.Done {
			marker = "x"
		}
		due := ""
		if task.DueDate != nil {
			due = " (due " + task.DueDate.Format("2006-01-02") + ")"
		}
		fmt.Printf("[%s] %s  %s%s\n", marker, task.ID, task.Title, due)
	}
	return nil
}

func addTask(ctx context.Context, store *tasks.Store, args []string) error {
	flags := pflag.NewFlagSet("tasks add", pflag.ContinueOnError)
	title := flags.String("title", "", "task title")
	description := flags.String("desc", "", "task description")
	priority := flags.Int("priority", 1, "task priority")
	due := flags.String("due", "", "due date (YYYY-MM-DD)")
	reminder := flags.String("reminder", "", "reminder time (YYYY-MM-DD)")
	repeat := flags.String("repeat", string(tasks.RepeatNone), "recurrence: none|daily|weekly|monthly|yearly")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*title) == "" {
		return fmt.Errorf("a task title is required")
	}

	draft := tasks.Draft{
		Title:       *title,
		Description: *description,
		Priority:    *priority,
		RepeatType:  tasks.RepeatType(*repeat),
	}
	if *due != "" {
		parsed, err := time.Parse("2006-01-02", *due)
		if err != nil {
			return fmt.Errorf("invalid due date %q: %w", *due, err)
		}
		draft.DueDate = utils.Ptr(parsed)
	}
	if *reminder != "" {
		parsed, err := time.Parse("2006-01-02", *reminder)
		if err != nil {
			return fmt.Errorf("invalid reminder %q: %w", *reminder, err)
		}
		draft.Reminder = utils.Ptr(parsed)
	}

	created, err := store.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s: %s\n", created.ID, created.Title)
	return nil
}

func toggleTask(ctx context.Context, store *tasks.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tasks done <id>")
	}
	if err := store.Refresh(ctx); err != nil {
		return err
	}
	if err := store.Toggle(ctx, args[0]); err != nil {
		return err
	}
	task, _ := store.Get(args[0])
	state := "open"
	if task.Done {
		state = "done"
	}
	fmt.Printf("Task %s is now %s.\n", args[0], state)
	return nil
}

func removeTask(ctx context.Context, store *tasks.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tasks rm <id>")
	}
	if err := store.Refresh(ctx); err != nil {
		return err
	}
	if err := store.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s.\n", args[0])
	return nil
}
