package app

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", nil, CommandServe},
		{"空文字はserve", []string{""}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"後続の引数は無視", []string{"worker", "--interval", "1h"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("ParseCommand(%q) returned error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownIsError(t *testing.T) {
	for _, arg := range []string{"server", "Serve", "--help"} {
		_, err := ParseCommand([]string{arg})
		if err == nil {
			t.Errorf("ParseCommand([%q]) should return error", arg)
			continue
		}
		if !strings.Contains(err.Error(), arg) || !strings.Contains(err.Error(), "healthcheck") {
			t.Errorf("error should name the argument and list commands: %v", err)
		}
	}
}

func TestCommand_RequiresConfig(t *testing.T) {
	tests := []struct {
		cmd        Command
		wantConfig bool
	}{
		{CommandServe, true},
		{CommandWorker, true},
		{CommandMigrate, true},
		{CommandHealthcheck, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			if got := tt.cmd.RequiresConfig(); got != tt.wantConfig {
				t.Errorf("RequiresConfig() = %v, want %v", got, tt.wantConfig)
			}
		})
	}
}
