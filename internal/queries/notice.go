package queries

import "sync"

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a user-visible outcome message for one write.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

func Success(text string) Notice { return Notice{Kind: NoticeSuccess, Text: text} }
func Failure(text string) Notice { return Notice{Kind: NoticeError, Text: text} }

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}

// Collector keeps the notices raised while serving one request.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Last returns the most recent notice, if any.
func (c *Collector) Last() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.notices) == 0 {
		return Notice{}, false
	}
	return c.notices[len(c.notices)-1], true
}
