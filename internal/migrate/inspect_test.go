package migrate

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
)

func TestInspect_LegacyUserData(t *testing.T) {
	in, err := New().Inspect(bytes.NewReader(readFixture(t, "user_data_p4.pickle")))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	if in.Protocol != 4 {
		t.Errorf("Protocol = %d, want 4", in.Protocol)
	}
	if in.Root != "collections.defaultdict instance" {
		t.Errorf("Root = %q", in.Root)
	}

	wantClasses := map[string]int{
		"telegram.user.User":                  1,
		"telegram.chat.Chat":                  1,
		"telegram.utils.helpers.DefaultValue": 1,
		"telegram.message.Message":            2,
	}
	if diff := cmp.Diff(wantClasses, in.Classes); diff != "" {
		t.Errorf("Classes mismatch (-want +got):\n%s", diff)
	}

	wantLegacy := map[string]int{
		"bot":                             4,
		"voice_chat_ended":                1,
		"voice_chat_scheduled":            1,
		"voice_chat_participants_invited": 1,
	}
	if diff := cmp.Diff(wantLegacy, in.LegacyFields); diff != "" {
		t.Errorf("LegacyFields mismatch (-want +got):\n%s", diff)
	}

	if in.Sentinels != 4 {
		t.Errorf("Sentinels = %d, want 4", in.Sentinels)
	}
	if in.Migrated() {
		t.Error("v13 data reported as migrated")
	}
}

func TestInspect_ProtocolZero(t *testing.T) {
	in, err := New().Inspect(bytes.NewReader(readFixture(t, "simple_p0.pickle")))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if in.Classes["telegram.message.Message"] != 1 {
		t.Errorf("Classes = %v, want the reconstructed Message", in.Classes)
	}
	if in.LegacyFields["voice_chat_started"] != 1 {
		t.Errorf("LegacyFields = %v", in.LegacyFields)
	}
}

func TestInspect_MigratedOutput(t *testing.T) {
	out, _ := migrateBytes(t, New(), readFixture(t, "voicechat_p4.pickle"))

	in, err := New().Inspect(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !in.Migrated() {
		t.Errorf("migrated output not recognized: %+v", in)
	}
	if in.PersistentRefs != 2 {
		t.Errorf("PersistentRefs = %d, want 2", in.PersistentRefs)
	}
	wantClasses := map[string]int{
		"telegram._videochat.VideoChatStarted": 1,
		"telegram._message.Message":            1,
	}
	if diff := cmp.Diff(wantClasses, in.Classes); diff != "" {
		t.Errorf("Classes mismatch (-want +got):\n%s", diff)
	}
}

func TestInspect_UnknownClass(t *testing.T) {
	data := []byte("\x80\x04\x8c\x0ctelegram.ext\x8c\x0fCallbackContext\x93)\x81.")

	in, err := New().Inspect(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if len(in.Unknown) != 1 || in.Unknown[0] != "telegram.ext.CallbackContext" {
		t.Errorf("Unknown = %v", in.Unknown)
	}
	if in.Migrated() {
		t.Error("file with unknown classes reported as migrated")
	}
}

func TestInspect_Corrupt(t *testing.T) {
	_, err := New().Inspect(bytes.NewReader([]byte("\x80\x04}")))
	if !errors.Is(err, domain.ErrDecode) {
		t.Errorf("Inspect() error = %v, want ErrDecode", err)
	}
}
