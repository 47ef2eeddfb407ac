package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flemzord/bionic/internal/workspace"
	"github.com/flemzord/bionic/pkg/message"
)

const (
	nicknameHeader = "Participant nickname to address mapping. People may use several " +
		"nicknames; refer to them only by their address (format nickname: address):"
	memoryHeader = "Long-term memory (important facts, keep them in mind):"
)

// BuildSystemPrompt assembles the system message for key: the persona, the
// optional nickname block and, for group conversations, the masked
// long-term memories followed by the memory tag instruction.
func (s *Store) BuildSystemPrompt(key string, isGroup bool) *message.Message {
	var b strings.Builder

	persona := s.persona()
	block := s.nicknameBlock()
	switch {
	case block == "":
		b.WriteString(persona)
	case s.cfg.NicknamePosition == PositionTop:
		b.WriteString(block)
		b.WriteString("\n\n")
		b.WriteString(persona)
	default:
		b.WriteString(persona)
		b.WriteString("\n\n")
		b.WriteString(block)
	}

	if groupID, ok := GroupID(key); ok && isGroup {
		memories := s.memory.GetMemory(groupID, s.cfg.LongTermMemoryLimit)
		if len(memories) > 0 {
			b.WriteString("\n\n")
			b.WriteString(memoryHeader)
			for i, m := range memories {
				fmt.Fprintf(&b, "\n%d. %s", i+1, s.masker.Redact(m))
			}
		}
		b.WriteString("\n")
		b.WriteString(s.tags.Instruction())
	}

	return message.NewSystem(b.String(), s.now())
}

func (s *Store) persona() string {
	if s.soul == nil {
		return workspace.DefaultSoulPrompt
	}
	content, err := s.soul.Load()
	if err != nil {
		s.logger.Warn("persona document unreadable, using fallback", "error", err)
		return workspace.DefaultSoulPrompt
	}
	return content
}

func (s *Store) nicknameBlock() string {
	if !s.cfg.NicknameInjection || len(s.cfg.Nicknames) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.cfg.Nicknames))
	for n := range s.cfg.Nicknames {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(nicknameHeader)
	for _, n := range names {
		fmt.Fprintf(&b, "\n- %s: %s", n, s.cfg.Nicknames[n])
	}
	return b.String()
}
