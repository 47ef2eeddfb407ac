package ctxengine_test

import (
	"fmt"
	"time"

	"github.com/flemzord/bionic/pkg/message"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// makeTestMessages builds n alternating user/assistant messages.
func makeTestMessages(n int) []*message.Message {
	msgs := make([]*message.Message, n)
	for i := range n {
		role := message.RoleUser
		if i%2 == 1 {
			role = message.RoleAssistant
		}
		msgs[i] = message.NewText(role, fmt.Sprintf("message %d", i), epoch.Add(time.Duration(i)*time.Minute))
	}
	return msgs
}

// mockEstimator counts one token per byte.
type mockEstimator struct{}

func (mockEstimator) Estimate(text string) int { return len(text) }
