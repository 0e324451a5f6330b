package request

// SetLivesRequest is the request body for overriding a player's lives.
// Lives is a pointer so a missing field is distinguishable from zero.
type SetLivesRequest struct {
	Lives *int `json:"lives"`
}
