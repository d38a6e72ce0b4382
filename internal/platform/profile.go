package platform

// GitHubProfile is the authenticated GitHub viewer ("who am I" call).
type GitHubProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// LinearProfile is the authenticated Linear viewer.
type LinearProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}
