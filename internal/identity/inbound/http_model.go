package inbound

type CredentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
