package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/inkpress/internal/db"
	"github.com/inkpress/internal/service"
	"golang.org/x/crypto/bcrypt"
)

const principalKey = "principal"

// tokenTTL 登录令牌有效期
const tokenTTL = 72 * time.Hour

// Login 校验邮箱密码并签发 JWT。
func (a *API) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req, "邮箱或密码格式不正确") {
		return
	}

	var user db.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "签发令牌失败")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"token": signed,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// AuthRequired 校验 Bearer 令牌并把当前用户放入请求上下文。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			respondError(c, http.StatusUnauthorized, "缺少认证令牌")
			c.Abort()
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			respondError(c, http.StatusUnauthorized, "认证令牌无效")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(c, http.StatusUnauthorized, "认证令牌无效")
			c.Abort()
			return
		}
		sub, ok := claims["sub"].(float64)
		if !ok {
			respondError(c, http.StatusUnauthorized, "认证令牌无效")
			c.Abort()
			return
		}

		// 重新读一遍用户，保证被删除的账号立刻失效
		var user db.User
		if err := a.db.First(&user, uint(sub)).Error; err != nil {
			respondError(c, http.StatusUnauthorized, "用户不存在或已被禁用")
			c.Abort()
			return
		}

		c.Set(principalKey, service.Principal{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) (service.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return service.Principal{}, false
	}
	principal, ok := value.(service.Principal)
	return principal, ok
}
