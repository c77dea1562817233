package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reflectus-app/reflectus/pkg/internal/database"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func GetAccountWithID(id uint) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("id = ?", id).First(&account).Error; err != nil {
		return account, fmt.Errorf("unable to get account by id: %v", err)
	}
	return account, nil
}

func NewAccount(name, nick, email, password string) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("name = ? OR email = ?", name, email).First(&account).Error; err == nil {
		return account, fmt.Errorf("name or email is already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account, err
	}

	account = models.Account{
		Name:     name,
		Nick:     nick,
		Email:    email,
		Password: string(hashed),
	}

	err = database.C.Create(&account).Error
	return account, err
}

func AuthenticateAccount(name, password string) (models.Account, string, error) {
	var account models.Account
	if err := database.C.Where("name = ? OR email = ?", name, name).First(&account).Error; err != nil {
		return account, "", fmt.Errorf("account was not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return account, "", fmt.Errorf("invalid credentials")
	}

	token, err := IssueSessionToken(account)
	return account, token, err
}

func IssueSessionToken(account models.Account) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", account.ID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
		Issuer:    "reflectus",
	}

	tk := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tk.SignedString([]byte(viper.GetString("security.jwt_secret")))
}

func VerifySessionToken(raw string) (models.Account, error) {
	var account models.Account
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(viper.GetString("security.jwt_secret")), nil
	})
	if err != nil || !token.Valid {
		return account, fmt.Errorf("invalid session token")
	}

	claims := token.Claims.(*jwt.RegisteredClaims)
	var id uint
	if _, err := fmt.Sscanf(claims.Subject, "%d", &id); err != nil {
		return account, fmt.Errorf("malformed session subject")
	}

	return GetAccountWithID(id)
}
