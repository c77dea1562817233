package models

const (
	MemberRoleFacilitator = "facilitator"
	MemberRoleParticipant = "participant"
)

type Account struct {
	BaseModel

	Name     string `json:"name" gorm:"uniqueIndex"`
	Nick     string `json:"nick"`
	Email    string `json:"email" gorm:"uniqueIndex"`
	Password string `json:"-"`
	Language string `json:"language"`

	Memberships []GroupMember `json:"memberships"`
}

type Group struct {
	BaseModel

	Name        string `json:"name"`
	Description string `json:"description"`
	InviteCode  string `json:"invite_code" gorm:"uniqueIndex"`

	OwnerID uint `json:"owner_id"`

	Members    []GroupMember `json:"members"`
	Activities []Activity    `json:"activities"`
}

type GroupMember struct {
	BaseModel

	Role string `json:"role"`

	GroupID   uint    `json:"group_id" gorm:"uniqueIndex:idx_group_member"`
	AccountID uint    `json:"account_id" gorm:"uniqueIndex:idx_group_member"`
	Account   Account `json:"account"`
}
