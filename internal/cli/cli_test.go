package cli

import (
	"testing"
)

// Test command initialization and registration
func TestCommandsRegistered(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	commands := rootCmd.Commands()
	expectedCommands := map[string]bool{
		"keygen":  false,
		"digest":  false,
		"poll":    false,
		"decrypt": false,
	}

	for _, cmd := range commands {
		if _, ok := expectedCommands[cmd.Use]; ok {
			expectedCommands[cmd.Use] = true
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestKeygenFlags(t *testing.T) {
	if keygenCmd.Flags().Lookup("bits") == nil {
		t.Error("keygen should have a bits flag")
	}
	if keygenCmd.Flags().Lookup("out") == nil {
		t.Error("keygen should have an out flag")
	}
}

func TestPollRequiredFlags(t *testing.T) {
	for _, name := range []string{"client-id", "token", "timestamp"} {
		flag := pollCmd.Flags().Lookup(name)
		if flag == nil {
			t.Fatalf("poll should have a %s flag", name)
		}
	}
}
