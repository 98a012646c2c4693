package dto

// ListUsersQuery is the directory listing filter. SortBy is whitelisted by
// the user service; unknown columns fall back to created_at.
type ListUsersQuery struct {
	Page      int    `query:"page" validate:"omitempty,min=1"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Search    string `query:"search"`
	SortBy    string `query:"sort_by" validate:"omitempty,oneof=created_at username email"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
	Role      string `query:"role" validate:"omitempty,oneof=ADMIN USER"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
