package conversation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/internal/memory"
	"github.com/flemzord/bionic/internal/workspace"
	"github.com/flemzord/bionic/pkg/message"
)

func promptStore(t *testing.T, cfg conversation.Config, soul workspace.SoulProvider) (*conversation.Store, *memory.FileStore) {
	t.Helper()
	mem := memory.NewFileStore(memory.FileConfig{})
	s := newStore(cfg, newClock(), func(o *conversation.Options) {
		o.Memory = mem
		o.Soul = soul
		o.Masker = starMasker{}
	})
	return s, mem
}

func persona(text string) workspace.SoulProvider {
	return soulFunc(func() (string, error) { return text, nil })
}

func TestBuildSystemPrompt_PersonaOnly(t *testing.T) {
	t.Parallel()

	s, _ := promptStore(t, conversation.DefaultConfig(), persona("You are Bionic."))
	msg := s.BuildSystemPrompt("user_1", false)

	if msg.Role() != message.RoleSystem || msg.Kind() != message.KindSystem {
		t.Errorf("role/kind = %s/%s", msg.Role(), msg.Kind())
	}
	if msg.Text() != "You are Bionic." {
		t.Errorf("prompt = %q, want the persona alone", msg.Text())
	}
}

func TestBuildSystemPrompt_FallbackPersona(t *testing.T) {
	t.Parallel()

	failing := soulFunc(func() (string, error) { return "", errors.New("permission denied") })
	s, _ := promptStore(t, conversation.DefaultConfig(), failing)
	if got := s.BuildSystemPrompt("user_1", false).Text(); got != workspace.DefaultSoulPrompt {
		t.Errorf("prompt = %q, want fallback persona", got)
	}

	s, _ = promptStore(t, conversation.DefaultConfig(), nil)
	if got := s.BuildSystemPrompt("user_1", false).Text(); got != workspace.DefaultSoulPrompt {
		t.Errorf("nil provider prompt = %q, want fallback persona", got)
	}
}

func TestBuildSystemPrompt_Nicknames(t *testing.T) {
	t.Parallel()

	base := conversation.DefaultConfig()
	base.Nicknames = map[string]string{"zed": "Z", "amy": "Amelia"}

	tests := []struct {
		name      string
		position  string
		injection bool
		check     func(t *testing.T, prompt string)
	}{
		{"bottom", conversation.PositionBottom, true, func(t *testing.T, prompt string) {
			if !strings.HasPrefix(prompt, "PERSONA\n\n") {
				t.Errorf("persona should lead: %q", prompt)
			}
			if !strings.HasSuffix(prompt, "\n- amy: Amelia\n- zed: Z") {
				t.Errorf("sorted nickname rows should close the prompt: %q", prompt)
			}
		}},
		{"top", conversation.PositionTop, true, func(t *testing.T, prompt string) {
			if strings.HasPrefix(prompt, "\n") {
				t.Errorf("top injection must not start with a newline: %q", prompt)
			}
			if !strings.HasSuffix(prompt, "- zed: Z\n\nPERSONA") {
				t.Errorf("persona should follow the block: %q", prompt)
			}
		}},
		{"disabled", conversation.PositionBottom, false, func(t *testing.T, prompt string) {
			if prompt != "PERSONA" {
				t.Errorf("disabled injection prompt = %q", prompt)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			cfg.NicknamePosition = tt.position
			cfg.NicknameInjection = tt.injection
			s, _ := promptStore(t, cfg, persona("PERSONA"))
			tt.check(t, s.BuildSystemPrompt("user_1", false).Text())
		})
	}
}

func TestBuildSystemPrompt_GroupMemories(t *testing.T) {
	t.Parallel()

	cfg := conversation.DefaultConfig()
	cfg.LongTermMemoryLimit = 2
	s, mem := promptStore(t, cfg, persona("PERSONA"))

	for _, fact := range []string{"oldest fact", "alice likes tea", "the secret word is plum"} {
		if _, err := mem.AddMemory("42", fact, 1); err != nil {
			t.Fatal(err)
		}
	}

	prompt := s.BuildSystemPrompt(conversation.GroupKey("42"), true).Text()
	if strings.Contains(prompt, "oldest fact") {
		t.Error("only the most recent memories should be injected")
	}
	first := strings.Index(prompt, "\n1. alice likes tea")
	second := strings.Index(prompt, "\n2. the ****** word is plum")
	if first < 0 || second < first {
		t.Errorf("memories missing, unmasked or out of order:\n%s", prompt)
	}
	instruction := memory.NewTagSyntax("").Instruction()
	if !strings.HasSuffix(prompt, "\n"+instruction) {
		t.Errorf("prompt should end with the tag instruction:\n%s", prompt)
	}
}

func TestBuildSystemPrompt_GroupWithoutMemories(t *testing.T) {
	t.Parallel()

	s, _ := promptStore(t, conversation.DefaultConfig(), persona("PERSONA"))
	instruction := memory.NewTagSyntax("").Instruction()

	if got := s.BuildSystemPrompt("group_9", true).Text(); got != "PERSONA\n"+instruction {
		t.Errorf("prompt = %q", got)
	}
	if got := s.BuildSystemPrompt("group_9", false).Text(); got != "PERSONA" {
		t.Errorf("non-group prompt = %q", got)
	}
}

func TestBuildSystemPrompt_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := conversation.DefaultConfig()
	cfg.Nicknames = map[string]string{"c": "3", "a": "1", "b": "2"}
	s, _ := promptStore(t, cfg, persona("PERSONA"))

	want := s.BuildSystemPrompt("group_1", true).Text()
	for range 10 {
		if got := s.BuildSystemPrompt("group_1", true).Text(); got != want {
			t.Fatalf("prompt changed between calls:\n%s\n---\n%s", want, got)
		}
	}
}
