package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleReader = "reader"
)

// User 定义了用户模型，Role 区分管理员、员工（可发布全局消息）与普通读者。
type User struct {
	gorm.Model
	Username  string `gorm:"unique;not null" json:"username"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	PhotoURL  string `json:"foto_perfil"`
	Role      string `gorm:"size:16;not null;default:reader" json:"rol"`
}

// IsAdmin 判断用户是否拥有管理员权限。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsStaff 管理员同样视为员工。
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleStaff || u.Role == RoleAdmin)
}

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户；
// 已存在时仅在角色不同的情况下更新角色。
func EnsureUser(gdb *gorm.DB, username, password, role string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	role = strings.TrimSpace(role)
	if role == "" {
		role = RoleReader
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return gdb.Create(&User{Username: trimmedUser, Password: string(hashed), Role: role}).Error
	}

	if existing.Role != role {
		return gdb.Model(&existing).Update("role", role).Error
	}

	return nil
}
