package command

import (
	"bytes"
	"errors"
	"testing"
)

func TestApp(t *testing.T) {
	app := App()

	if app.Name != "ptb-migrate" {
		t.Errorf("Name = %q, want ptb-migrate", app.Name)
	}
	if app.Usage == "" || app.Version == "" {
		t.Error("Usage and Version should not be empty")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}
	for _, name := range []string{"convert", "locate", "inspect", "backup", "config", "version"} {
		if !commandNames[name] {
			t.Errorf("missing command: %s", name)
		}
	}
}

func TestApp_GlobalFlags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, flag := range App().Flags {
		flagNames[flag.Names()[0]] = true
	}
	for _, name := range []string{"config", "log-level", "log-format", "output", "wide", "metrics-file"} {
		if !flagNames[name] {
			t.Errorf("missing global flag: %s", name)
		}
	}
}

func TestConvertCommand_Flags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, flag := range ConvertCommand().Flags {
		for _, n := range flag.Names() {
			flagNames[n] = true
		}
	}
	for _, name := range []string{"path", "p", "dry-run", "n", "no-backup", "backup-dir", "keep", "protocol"} {
		if !flagNames[name] {
			t.Errorf("missing convert flag: %s", name)
		}
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("could not find the files to convert"))
	if got := buf.String(); got != "error: could not find the files to convert\n" {
		t.Errorf("PrintError() = %q", got)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	base := setupBase(t, map[string]string{"_user_data": "user_data_p4.pickle"})

	res := runApp(t, "-o", "xml", "locate", base)
	if res.err == nil {
		t.Fatal("expected an error for output format xml")
	}
}
