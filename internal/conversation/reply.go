package conversation

import "github.com/flemzord/bionic/pkg/message"

// AbsorbReply records a generated reply. In group conversations a memory
// tag in the reply is stored as a long-term memory. Tags are stripped
// before the reply is appended as an assistant message stamped with
// botName. The cleaned reply is returned.
func (s *Store) AbsorbReply(key, botName, reply string) string {
	if groupID, ok := GroupID(key); ok {
		if fact, found := s.tags.Extract(reply); found {
			added, err := s.memory.AddMemory(groupID, fact, s.cfg.DefaultImportance)
			switch {
			case err != nil:
				s.logger.Warn("long-term memory not persisted", "group", groupID, "error", err)
			case added:
				s.recorder.MemoryAbsorbed()
				s.logger.Info("long-term memory added", "group", groupID)
			}
		}
	}

	cleaned := s.tags.Strip(reply)
	var msg *message.Message
	if botName == "" {
		msg = message.NewText(message.RoleAssistant, cleaned, s.now())
	} else {
		msg = message.NewAuthored(message.RoleAssistant, botName, cleaned, s.now())
	}
	s.AddMessage(key, msg, "")
	return cleaned
}
