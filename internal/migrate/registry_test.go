package migrate

import (
	"sort"
	"testing"

	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name   string
		want   string
		kind   ClassKind
		exists bool
	}{
		{"Message", "telegram._message.Message", KindDomain, true},
		{"User", "telegram._user.User", KindDomain, true},
		{"PhotoSize", "telegram._files.photosize.PhotoSize", KindDomain, true},
		{"InlineKeyboardButton", "telegram._inline.inlinekeyboardbutton.InlineKeyboardButton", KindDomain, true},
		{"EncryptedCredentials", "telegram._passport.credentials.EncryptedCredentials", KindDomain, true},
		{"VoiceChatStarted", "telegram._videochat.VideoChatStarted", KindDomain, true},
		{"VoiceChatParticipantsInvited", "telegram._videochat.VideoChatParticipantsInvited", KindDomain, true},
		{"DefaultValue", "telegram._utils.defaultvalue.DefaultValue", KindHelper, true},
		{"InputFile", "telegram._files.inputfile.InputFile", KindHelper, true},
		{"CallbackContext", "", 0, false},
		{"Bot", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := r.Resolve(tt.name)
			if ok != tt.exists {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.name, ok, tt.exists)
			}
			if !ok {
				return
			}
			if info.Path() != tt.want {
				t.Errorf("Path() = %q, want %q", info.Path(), tt.want)
			}
			if info.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", info.Kind, tt.kind)
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	if _, ok := r.Lookup(pickle.Global{Module: "telegram._chat", Name: "Chat"}); !ok {
		t.Error("Lookup(telegram._chat.Chat) failed")
	}
	// Lookup is exact; v13 module paths are only handled by Resolve.
	if _, ok := r.Lookup(pickle.Global{Module: "telegram.chat", Name: "Chat"}); ok {
		t.Error("Lookup(telegram.chat.Chat) should not match")
	}
	if _, ok := r.Lookup(pickle.Global{Module: "telegram._videochat", Name: "VoiceChatStarted"}); ok {
		t.Error("aliases must not be registered as classes")
	}
}

func TestRegistry_NoDuplicateNames(t *testing.T) {
	total := 0
	for _, names := range v20Modules {
		total += len(names)
	}
	for _, names := range v20Helpers {
		total += len(names)
	}

	r := NewRegistry()
	if r.Len() != total {
		t.Errorf("Len() = %d, want %d (a class name is listed twice)", r.Len(), total)
	}

	names := r.Names()
	if !sort.StringsAreSorted(names) {
		t.Error("Names() is not sorted")
	}
	for _, target := range classAliases {
		if _, ok := r.Resolve(target); !ok {
			t.Errorf("alias target %s is not registered", target)
		}
	}
}

func TestDefaultRegistry_Shared(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestIsTelegramModule(t *testing.T) {
	tests := map[string]bool{
		"telegram":                        true,
		"telegram.message":                true,
		"telegram.ext._picklepersistence": true,
		"telegramx":                       false,
		"builtins":                        false,
		"collections":                     false,
	}
	for module, want := range tests {
		if got := IsTelegramModule(module); got != want {
			t.Errorf("IsTelegramModule(%q) = %v, want %v", module, got, want)
		}
	}
}

func TestClassKind_String(t *testing.T) {
	if KindDomain.String() != "domain" || KindHelper.String() != "helper" {
		t.Errorf("String() = %s, %s", KindDomain, KindHelper)
	}
	if got := ClassKind(7).String(); got != "kind(7)" {
		t.Errorf("String() = %q, want kind(7)", got)
	}
}
