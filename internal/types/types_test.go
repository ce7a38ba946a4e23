package types

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from SpecStatus
		to   SpecStatus
		want bool
	}{
		{"todo to merge_ready", StatusTodo, StatusMergeReady, true},
		{"todo to abandoned", StatusTodo, StatusAbandoned, true},
		{"merge_ready to completed", StatusMergeReady, StatusCompleted, true},
		{"merge_ready to abandoned", StatusMergeReady, StatusAbandoned, true},
		{"no-op todo", StatusTodo, StatusTodo, true},
		{"todo to completed skips merge_ready", StatusTodo, StatusCompleted, false},
		{"completed is terminal", StatusCompleted, StatusTodo, false},
		{"abandoned is terminal", StatusAbandoned, StatusMergeReady, false},
		{"merge_ready back to todo", StatusMergeReady, StatusTodo, false},
		{"completed to abandoned", StatusCompleted, StatusAbandoned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestValidateTransition_NamesIllegalPair(t *testing.T) {
	err := ValidateTransition(StatusCompleted, StatusTodo)
	if err == nil {
		t.Fatal("expected error for completed -> todo")
	}

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != StatusCompleted || te.To != StatusTodo {
		t.Errorf("TransitionError = %q -> %q, want completed -> todo", te.From, te.To)
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if err := ValidateTransition(StatusTodo, SpecStatus("paused")); err == nil {
		t.Error("expected error for unknown target status")
	}
}

func TestTaskIncomplete(t *testing.T) {
	task := &Task{
		Title:  "implement parser",
		Status: TaskCompleted,
		Subtasks: []Subtask{
			{Title: "tokenizer", Status: TaskCompleted},
			{Title: "error recovery", Status: TaskTodo},
		},
	}

	open := task.Incomplete()
	if len(open) != 1 || open[0] != "error recovery" {
		t.Errorf("Incomplete() = %v, want [error recovery]", open)
	}

	task.Subtasks[1].Status = TaskCompleted
	if open := task.Incomplete(); len(open) != 0 {
		t.Errorf("Incomplete() = %v, want empty", open)
	}
}

func TestValidSpecStatus(t *testing.T) {
	for _, s := range []SpecStatus{StatusTodo, StatusMergeReady, StatusCompleted, StatusAbandoned} {
		if !ValidSpecStatus(s) {
			t.Errorf("ValidSpecStatus(%q) = false, want true", s)
		}
	}
	if ValidSpecStatus("active") {
		t.Error("ValidSpecStatus(active) = true, want false (active is derived, never stored)")
	}
}
