package handler

import (
	"net/http"
	"strings"

	"github.com/diario/internal/db"
	"github.com/diario/internal/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	currentUserKey = "__current_user"
	sessionUserKey = "user_id"
)

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login 校验账号密码，写入会话并返回访问令牌。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Usuario y contraseña son obligatorios")
		return
	}

	user, err := a.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := a.auth.IssueToken(user, a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "No se pudo guardar la sesión")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"usuario": user,
	})
}

// Logout 清除会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		logger.L().Warn("clear session failed", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// Identify 依次从 Bearer 令牌与会话中解析当前用户，解析失败时按匿名访问处理。
func (a *API) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := a.tokenUserID(c)
		if userID == 0 {
			session := sessions.Default(c)
			switch v := session.Get(sessionUserKey).(type) {
			case uint:
				userID = v
			case int:
				userID = uint(v)
			case int64:
				userID = uint(v)
			}
		}

		if userID != 0 {
			if user, err := a.auth.LoadUser(c.Request.Context(), userID); err == nil {
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

func (a *API) tokenUserID(c *gin.Context) uint {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return 0
	}
	id, err := a.auth.ParseToken(strings.TrimSpace(header[7:]), a.now())
	if err != nil {
		return 0
	}
	return id
}

// RequireUser 拒绝匿名请求。
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			respondError(c, http.StatusUnauthorized, "Autenticación requerida")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *db.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*db.User)
	return user
}
