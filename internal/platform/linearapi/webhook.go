package linearapi

// WebhookPayload is the Linear webhook delivery shape, narrowed to the
// fields the sync core consumes. Everything else stays platform-owned.
type WebhookPayload struct {
	Action      string             `json:"action"` // create, update, remove
	Type        string             `json:"type"`   // Issue, Comment
	Actor       WebhookActor       `json:"actor"`
	Data        WebhookData        `json:"data"`
	UpdatedFrom WebhookUpdatedFrom `json:"updatedFrom"`
}

// WebhookActor identifies who triggered the delivery.
type WebhookActor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WebhookData is the changed entity inside a webhook delivery.
type WebhookData struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Body        string       `json:"body"`
	TeamID      string       `json:"teamId"`
	IssueID     string       `json:"issueId"`
	UserID      string       `json:"userId"`
	State       WebhookState `json:"state"`
}

// WebhookState is the issue's workflow state after the change.
type WebhookState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // triage, backlog, unstarted, started, completed, canceled
}

// WebhookUpdatedFrom carries the previous values of changed fields on an
// update delivery. A non-empty StateID means the workflow state moved.
type WebhookUpdatedFrom struct {
	StateID string `json:"stateId"`
}
