package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	Nickname string `json:"nickname"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SubmitScoreRequest is the request body for submitting a score
type SubmitScoreRequest struct {
	Score *int `json:"score"`
}
