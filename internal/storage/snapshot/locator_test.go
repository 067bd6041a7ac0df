package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		dirs    []string
		want    []Category
		wantErr bool
	}{
		{
			name:  "single file",
			files: []string{"data", "data_user_data"},
			want:  []Category{CategorySingle},
		},
		{
			name:  "only chat data",
			files: []string{"data_chat_data"},
			want:  []Category{CategoryChatData},
		},
		{
			name:  "category order",
			files: []string{"data_callback_data", "data_conversations", "data_user_data", "data_bot_data"},
			want:  []Category{CategoryUserData, CategoryBotData, CategoryConversations, CategoryCallbackData},
		},
		{
			name:  "unrelated suffix ignored",
			files: []string{"data_user_data", "data_extra", "data_user_data.bak"},
			want:  []Category{CategoryUserData},
		},
		{
			name:    "nothing present",
			files:   []string{"other_user_data"},
			wantErr: true,
		},
		{
			name:    "directories do not count",
			dirs:    []string{"data", "data_user_data"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, f))
			}
			for _, d := range tt.dirs {
				if err := os.Mkdir(filepath.Join(dir, d), 0750); err != nil {
					t.Fatalf("Mkdir: %v", err)
				}
			}

			base := filepath.Join(dir, "data")
			files, err := Locate(base)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrSnapshotNotFound) {
					t.Fatalf("Locate() error = %v, want ErrSnapshotNotFound", err)
				}
				if !strings.Contains(err.Error(), base) {
					t.Errorf("error %q does not name %s", err, base)
				}
				return
			}
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}

			var got []Category
			for _, f := range files {
				got = append(got, f.Category)
				if want := base + f.Category.Suffix(); f.Path != want {
					t.Errorf("Path = %s, want %s", f.Path, want)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("categories mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocate_DoesNotModify(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "data_bot_data"))

	if _, err := Locate(filepath.Join(dir, "data")); err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after Locate, want 1", len(entries))
	}
}

func TestCategory_Suffix(t *testing.T) {
	if CategorySingle.Suffix() != "" {
		t.Errorf("single suffix = %q", CategorySingle.Suffix())
	}
	if CategoryConversations.Suffix() != "_conversations" {
		t.Errorf("conversations suffix = %q", CategoryConversations.Suffix())
	}
}
