package command

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
)

func TestLocate(t *testing.T) {
	base := setupBase(t, map[string]string{
		"_chat_data": "simple_p4.pickle",
		"_user_data": "user_data_p4.pickle",
	})

	res := runApp(t, "-o", "json", "locate", base)
	if res.err != nil {
		t.Fatalf("locate: %v", res.err)
	}

	var files []struct {
		Path     string `json:"path"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &files); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	if len(files) != 2 || files[0].Category != "user_data" || files[1].Category != "chat_data" {
		t.Errorf("files = %+v", files)
	}
	if files[1].Path != base+"_chat_data" {
		t.Errorf("Path = %s", files[1].Path)
	}
}

func TestLocate_Table(t *testing.T) {
	base := setupBase(t, map[string]string{"_chat_data": "simple_p4.pickle"})

	res := runApp(t, "locate", "--path", base)
	if res.err != nil {
		t.Fatalf("locate: %v", res.err)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "PATH") || !strings.Contains(lines[1], "chat_data") {
		t.Errorf("stdout =\n%s", res.stdout)
	}
}

func TestLocate_NotFound(t *testing.T) {
	res := runApp(t, "locate", filepath.Join(t.TempDir(), "data"))
	if !errors.Is(res.err, domain.ErrSnapshotNotFound) {
		t.Errorf("error = %v, want ErrSnapshotNotFound", res.err)
	}
}

func TestInspect_Table(t *testing.T) {
	base := setupBase(t, map[string]string{"_user_data": "user_data_p4.pickle"})

	res := runApp(t, "inspect", base)
	if res.err != nil {
		t.Fatalf("inspect: %v", res.err)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("stdout =\n%s", res.stdout)
	}
	header := strings.Fields(lines[0])
	wantHeader := []string{"PATH", "CATEGORY", "PROTOCOL", "MIGRATED", "OBJECTS", "LEGACY", "SENTINELS", "UNKNOWN"}
	if strings.Join(header, " ") != strings.Join(wantHeader, " ") {
		t.Errorf("header = %v, want %v", header, wantHeader)
	}
	row := strings.Fields(lines[1])
	if row[1] != "user_data" || row[2] != "4" || row[3] != "no" || row[4] != "5" || row[6] != "4" || row[7] != "-" {
		t.Errorf("row = %v", row)
	}
	if !strings.Contains(row[5], "bot=4") {
		t.Errorf("legacy = %s", row[5])
	}
}

func TestInspect_Wide(t *testing.T) {
	base := setupBase(t, map[string]string{"_user_data": "user_data_p4.pickle"})

	res := runApp(t, "--wide", "inspect", base)
	if res.err != nil {
		t.Fatalf("inspect: %v", res.err)
	}
	for _, want := range []string{"ROOT", "SIZE", "DIGEST", "collections.defaultdict"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("wide output missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestInspect_AfterConvert(t *testing.T) {
	base := setupBase(t, map[string]string{"_user_data": "user_data_p4.pickle"})
	if res := runApp(t, "convert", "--no-backup", base); res.err != nil {
		t.Fatalf("convert: %v", res.err)
	}

	res := runApp(t, "-o", "yaml", "inspect", base)
	if res.err != nil {
		t.Fatalf("inspect: %v", res.err)
	}

	var results []map[string]any
	if err := yaml.Unmarshal([]byte(res.stdout), &results); err != nil {
		t.Fatalf("stdout is not YAML: %v\n%s", err, res.stdout)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r["category"] != "user_data" || r["sentinels"] != 0 || r["persistent_refs"] != 4 {
		t.Errorf("result = %v", r)
	}
	if legacy, _ := r["legacy_fields"].(map[string]any); len(legacy) != 0 {
		t.Errorf("legacy_fields = %v, want none", legacy)
	}
}
