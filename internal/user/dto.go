package user

type UserResponse struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Disabled bool   `json:"disabled"`
}

type UserDetailResponse struct {
	DN         string `json:"dn"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
}

type RefreshCacheResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
