package bus

import "time"

const (
	TopicEntitySelected  Topic = "entity-selected"
	TopicEntityCleared   Topic = "entity-cleared"
	TopicScopeSelected   Topic = "scope-selected"
	TopicScopeCleared    Topic = "scope-cleared"
	TopicDocumentChanged Topic = "document-changed"
	TopicPreviewUpdated  Topic = "preview-updated"
	TopicPreviewFailed   Topic = "preview-failed"
)

// EntitySelected is published when a search field commits a selection.
// Source identifies the emitting field instance.
type EntitySelected struct {
	Source int
	Kind   string
	ID     string
	Name   string
	Entity any
}

func (EntitySelected) Topic() Topic { return TopicEntitySelected }

// EntityCleared is published when a search field drops its selection.
type EntityCleared struct {
	Source int
	Kind   string
}

func (EntityCleared) Topic() Topic { return TopicEntityCleared }

// Scope identifies the parent entity that child collections hang off.
type Scope struct {
	ID   string
	Name string
}

// ScopeSelected announces a new parent scope (a client).
type ScopeSelected struct {
	Scope Scope
}

func (ScopeSelected) Topic() Topic { return TopicScopeSelected }

// ScopeCleared announces that no parent scope is selected.
type ScopeCleared struct{}

func (ScopeCleared) Topic() Topic { return TopicScopeCleared }

// DocumentChanged carries the latest document snapshot.
type DocumentChanged struct {
	Payload any
}

func (DocumentChanged) Topic() Topic { return TopicDocumentChanged }

// PreviewUpdated announces a freshly rendered preview artifact.
type PreviewUpdated struct {
	URL string
	At  time.Time
}

func (PreviewUpdated) Topic() Topic { return TopicPreviewUpdated }

// PreviewFailed announces that preview generation gave up.
type PreviewFailed struct {
	Err error
	At  time.Time
}

func (PreviewFailed) Topic() Topic { return TopicPreviewFailed }
