package report

// SubmitRequest is the submission payload from the game-facing client.
// Coordinate bounds mirror world limits so the composite location string
// can always be parsed back apart.
type SubmitRequest struct {
	PlayerName  string  `json:"player_name" validate:"required,playername"`
	PlayerUUID  string  `json:"player_uuid" validate:"required,uuid4"`
	Description string  `json:"description" validate:"required,min=10,max=1000"`
	World       string  `json:"world" validate:"required,max=64"`
	X           float64 `json:"x" validate:"gte=-30000000,lte=30000000"`
	Y           float64 `json:"y" validate:"gte=-64,lte=320"`
	Z           float64 `json:"z" validate:"gte=-30000000,lte=30000000"`
	GameMode    string  `json:"game_mode" validate:"required,max=32"`
	Health      float64 `json:"health" validate:"gte=0"`
	Level       int     `json:"level" validate:"gte=0"`
	Inventory   string  `json:"inventory" validate:"max=65535"`
}

// UpdateStatusRequest is the staff payload for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,reportstatus"`
}

// AddCommentRequest is the staff payload for appending a comment.
type AddCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}

// ListFilter narrows and pages the report list.
type ListFilter struct {
	Page    int
	PerPage int
	Status  string
}

// SubmitResponse reports the persistence and relay outcomes
// independently: a saved report with a failed relay is still a success.
type SubmitResponse struct {
	ID        int64  `json:"id"`
	Status    Status `json:"status"`
	Relayed   bool   `json:"relayed"`
	RelayNote string `json:"relay_note,omitempty"`
}

// DeleteResponse describes the outcome of a two-phase delete call.
type DeleteResponse struct {
	Deleted   bool     `json:"deleted"`
	Pending   bool     `json:"pending"`
	ExpiresIn int      `json:"expires_in_seconds,omitempty"`
	Report    *Summary `json:"report,omitempty"`
}
