package dto

type NewUserReq struct {
	Name  string `json:"name" validate:"notblank,min=2,max=250"`
	Email string `json:"email" validate:"required,email,min=6,max=254"`
}

type UserResp struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type NewCategoryReq struct {
	Name string `json:"name" validate:"notblank,min=1,max=50"`
}

type CategoryResp struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	InUse *bool  `json:"inUse,omitempty"`
}
