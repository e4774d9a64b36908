package bot

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type promptKey struct {
	channelID string
	userID    string
}

// promptRegistry routes follow-up messages to a handler waiting for a
// reply in a given channel from a given user. At most one prompt per
// (channel, user) pair is live at a time; replacing it cancels the
// previous waiter.
type promptRegistry struct {
	mu      sync.Mutex
	waiting map[promptKey]chan string
}

func newPromptRegistry() *promptRegistry {
	return &promptRegistry{waiting: make(map[promptKey]chan string)}
}

// deliver hands the message to a waiting prompt, if any. It returns
// true when the message was consumed and must not be dispatched as a
// command.
func (p *promptRegistry) deliver(m *discordgo.MessageCreate) bool {
	key := promptKey{channelID: m.ChannelID, userID: m.Author.ID}

	p.mu.Lock()
	ch, ok := p.waiting[key]
	if ok {
		delete(p.waiting, key)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	ch <- m.Content
	return true
}

// await blocks until the user sends a message in the channel, the
// context expires, or the prompt is replaced by a newer one.
func (p *promptRegistry) await(ctx context.Context, channelID, userID string) (string, bool) {
	key := promptKey{channelID: channelID, userID: userID}
	ch := make(chan string, 1)

	p.mu.Lock()
	if prev, ok := p.waiting[key]; ok {
		close(prev)
	}
	p.waiting[key] = ch
	p.mu.Unlock()

	select {
	case content, ok := <-ch:
		return content, ok
	case <-ctx.Done():
		p.mu.Lock()
		if p.waiting[key] == ch {
			delete(p.waiting, key)
		}
		p.mu.Unlock()
		return "", false
	}
}
