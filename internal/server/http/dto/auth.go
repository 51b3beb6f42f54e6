package dto

// AuthRequest is the register and login payload.
type AuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
