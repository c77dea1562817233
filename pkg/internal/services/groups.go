package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"gorm.io/gorm"
)

func NewGroup(owner models.Account, name, description string) (models.Group, error) {
	group := models.Group{
		Name:        name,
		Description: description,
		InviteCode:  strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		OwnerID:     owner.ID,
		Members: []models.GroupMember{
			{AccountID: owner.ID, Role: models.MemberRoleFacilitator},
		},
	}

	err := database.C.Create(&group).Error
	return group, err
}

func ListGroups(account models.Account) ([]models.Group, error) {
	var groups []models.Group
	err := database.C.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.account_id = ? AND group_members.deleted_at IS NULL", account.ID).
		Find(&groups).Error
	return groups, err
}

func GetGroupWithID(id uint) (models.Group, error) {
	var group models.Group
	if err := database.C.Where("id = ?", id).First(&group).Error; err != nil {
		return group, err
	}
	return group, nil
}

func JoinGroupWithCode(account models.Account, code string) (models.GroupMember, error) {
	var member models.GroupMember

	var group models.Group
	if err := database.C.Where("invite_code = ?", code).First(&group).Error; err != nil {
		return member, fmt.Errorf("invite code did not match any group")
	}

	if err := database.C.Where("group_id = ? AND account_id = ?", group.ID, account.ID).
		First(&member).Error; err == nil {
		return member, fmt.Errorf("you are already a member of this group")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return member, err
	}

	member = models.GroupMember{
		GroupID:   group.ID,
		AccountID: account.ID,
		Role:      models.MemberRoleParticipant,
	}

	err := database.C.Create(&member).Error
	return member, err
}

// GetMembership returns nil without an error when the account does not
// belong to the group.
func GetMembership(account models.Account, groupId uint) (*models.GroupMember, error) {
	var member models.GroupMember
	if err := database.C.Where("group_id = ? AND account_id = ?", groupId, account.ID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func EnsureFacilitator(account models.Account, groupId uint) (*models.GroupMember, error) {
	member, err := GetMembership(account, groupId)
	if err != nil {
		return nil, err
	}
	if member == nil || member.Role != models.MemberRoleFacilitator {
		return nil, fmt.Errorf("you are not a facilitator of this group")
	}
	return member, nil
}

func CountParticipants(groupId uint) (int64, error) {
	var count int64
	err := database.C.Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ?", groupId, models.MemberRoleParticipant).
		Count(&count).Error
	return count, err
}
