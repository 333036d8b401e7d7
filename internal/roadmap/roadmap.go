// Package roadmap drives a learning path: an ordered sequence of steps with
// exactly one current step at a time. Each step is gated by a generated task
// checklist; a step only ever completes through an explicit completion action
// once every task is checked, and a completed step's tasks become read-only.
package roadmap

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrInvalidInput   = errors.New("roadmap needs at least one step")
	ErrBadTodoIndex   = errors.New("todo index is out of range")
	ErrTasksOpen      = errors.New("current step still has unfinished tasks")
	ErrFullyCompleted = errors.New("roadmap is already fully completed")
	ErrTasksLoading   = errors.New("tasks for the current step are still loading")
)

type Todo struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

type Step struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Objective string `json:"objective"`
	Completed bool   `json:"completed"`
	Todos     []Todo `json:"todos,omitempty"`
}

// Outline is a step as it comes out of roadmap generation, before the engine
// assigns ids.
type Outline struct {
	Title     string `json:"title"`
	Objective string `json:"objective"`
}

// TaskSource generates the task checklist for a step. The titles and task
// lists of already-completed steps are passed along so generated tasks do not
// repeat prior content. Calls may be slow and may fail; the engine never
// retries on its own.
type TaskSource interface {
	GenerateTasks(ctx context.Context, topic, stepTitle string, completed []Step) ([]Todo, error)
}

// Snapshot is the render-ready view of the whole roadmap.
type Snapshot struct {
	Topic            string `json:"topic"`
	Steps            []Step `json:"steps"`
	CurrentStepIndex int    `json:"current_step_index"`
	FullyCompleted   bool   `json:"fully_completed"`
	AllTasksDone     bool   `json:"all_tasks_done"`
	TasksLoading     bool   `json:"tasks_loading"`
	TasksError       string `json:"tasks_error,omitempty"`
}

type Engine struct {
	mu           sync.Mutex
	topic        string
	steps        []Step
	currentIndex int
	tasksLoading bool
	tasksError   string
	source       TaskSource
}

// New builds an engine from a generated outline and immediately loads the
// task list for the first step. A task-generation failure does not fail
// creation; the step simply starts with no tasks and an exposed error.
func New(ctx context.Context, topic string, outline []Outline, source TaskSource) (*Engine, error) {
	if len(outline) == 0 {
		return nil, ErrInvalidInput
	}

	steps := make([]Step, len(outline))
	for i, item := range outline {
		steps[i] = Step{
			ID:        i,
			Title:     strings.TrimSpace(item.Title),
			Objective: strings.TrimSpace(item.Objective),
		}
	}

	engine := &Engine{
		topic:  strings.TrimSpace(topic),
		steps:  steps,
		source: source,
	}
	engine.loadCurrentTasks(ctx)
	return engine, nil
}

// loadCurrentTasks runs the task source for the current step. The lock is
// released around the generation call so snapshots can observe the loading
// state; mutations are rejected while a load is in flight.
func (e *Engine) loadCurrentTasks(ctx context.Context) {
	e.mu.Lock()
	if e.currentIndex >= len(e.steps) {
		e.mu.Unlock()
		return
	}
	index := e.currentIndex
	title := e.steps[index].Title
	completed := cloneSteps(e.steps[:index])
	e.tasksLoading = true
	e.tasksError = ""
	e.mu.Unlock()

	todos, err := e.source.GenerateTasks(ctx, e.topic, title, completed)

	e.mu.Lock()
	e.tasksLoading = false
	if err != nil {
		e.tasksError = err.Error()
	} else if e.currentIndex == index {
		e.steps[index].Todos = todos
	}
	e.mu.Unlock()
}

// ToggleTodo flips one checkbox on the current step. Todos of completed and
// upcoming steps are not reachable through here at all.
func (e *Engine) ToggleTodo(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentIndex >= len(e.steps) {
		return ErrFullyCompleted
	}
	if e.tasksLoading {
		return ErrTasksLoading
	}
	todos := e.steps[e.currentIndex].Todos
	if index < 0 || index >= len(todos) {
		return ErrBadTodoIndex
	}
	todos[index].Completed = !todos[index].Completed
	return nil
}

// CompleteCurrentStep is the only way a step moves into the completed set.
// It requires every task to be checked, freezes the step's todos, advances
// the current index, and then loads tasks for the next step (if any).
func (e *Engine) CompleteCurrentStep(ctx context.Context) error {
	e.mu.Lock()
	if e.currentIndex >= len(e.steps) {
		e.mu.Unlock()
		return ErrFullyCompleted
	}
	if e.tasksLoading {
		e.mu.Unlock()
		return ErrTasksLoading
	}
	step := &e.steps[e.currentIndex]
	// A step with no tasks (failed or empty generation) cannot be satisfied;
	// completing it would silently skip the step.
	if len(step.Todos) == 0 {
		e.mu.Unlock()
		return ErrTasksOpen
	}
	for _, todo := range step.Todos {
		if !todo.Completed {
			e.mu.Unlock()
			return ErrTasksOpen
		}
	}
	for i := range step.Todos {
		step.Todos[i].Completed = true
	}
	step.Completed = true
	e.currentIndex++
	finished := e.currentIndex >= len(e.steps)
	e.mu.Unlock()

	if !finished {
		e.loadCurrentTasks(ctx)
	}
	return nil
}

// ReloadTasks re-runs task generation for the current step. Offered to the
// caller as an explicit action after a failed load; never triggered
// automatically.
func (e *Engine) ReloadTasks(ctx context.Context) error {
	e.mu.Lock()
	if e.currentIndex >= len(e.steps) {
		e.mu.Unlock()
		return ErrFullyCompleted
	}
	if e.tasksLoading {
		e.mu.Unlock()
		return ErrTasksLoading
	}
	e.mu.Unlock()

	e.loadCurrentTasks(ctx)
	return nil
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	allDone := false
	if e.currentIndex < len(e.steps) {
		todos := e.steps[e.currentIndex].Todos
		allDone = len(todos) > 0
		for _, todo := range todos {
			if !todo.Completed {
				allDone = false
				break
			}
		}
	}

	return Snapshot{
		Topic:            e.topic,
		Steps:            cloneSteps(e.steps),
		CurrentStepIndex: e.currentIndex,
		FullyCompleted:   e.currentIndex >= len(e.steps),
		AllTasksDone:     allDone,
		TasksLoading:     e.tasksLoading,
		TasksError:       e.tasksError,
	}
}

func cloneSteps(steps []Step) []Step {
	cloned := make([]Step, len(steps))
	for i, step := range steps {
		cloned[i] = step
		cloned[i].Todos = append([]Todo(nil), step.Todos...)
	}
	return cloned
}
