package notification

import (
	"time"

	"github.com/autobrr/contentdir/pkg/content"
)

type Action int

const (
	ActionCategoryChanged Action = iota + 1
	ActionTagsChanged
)

func actionFor(kind content.ChangeKind) Action {
	if kind == content.TagsChanged {
		return ActionTagsChanged
	}
	return ActionCategoryChanged
}

func (a Action) String() string {
	switch a {
	case ActionCategoryChanged:
		return "Category changed"
	case ActionTagsChanged:
		return "Tags changed"
	}
	return "Unknown"
}

type Sender interface {
	CanSend() bool
	Send(title string, description string, runTime time.Duration, fields []Field) error
	BuildField(action Action, options BuildOptions) Field
	Name() string
}

type Field struct {
	Name  string
	Value string
}

type BuildOptions struct {
	File content.Snapshot
}
