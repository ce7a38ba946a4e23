package main

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{
		"spec", "task", "assign", "complete", "sync",
		"merge", "cleanup", "init", "status", "version",
	}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestCurrentUserNonEmpty(t *testing.T) {
	if currentUser() == "" {
		t.Error("currentUser() returned empty string")
	}
}
