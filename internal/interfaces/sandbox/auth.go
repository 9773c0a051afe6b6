package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
)

const userKey = "sandbox_user"

func fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func currentUser(c *gin.Context) *UserModel {
	u, _ := c.Get(userKey)
	m, _ := u.(*UserModel)
	return m
}

func paramID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		fail(c, http.StatusNotFound, "Not found")
		return 0, false
	}
	return uint(n), true
}

func (s *Server) requireUser(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		fail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	var u UserModel
	if err := s.db.WithContext(c.Request.Context()).First(&u, claims.UserID()).Error; err != nil {
		fail(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	c.Set(userKey, &u)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if u := currentUser(c); u == nil || !u.admin() {
		fail(c, http.StatusForbidden, "Admin access required")
		return
	}
	c.Next()
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var u UserModel
	err := s.db.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(req.Email)).First(&u).Error
	if err != nil || !checkPassword(u.PasswordHash, req.Password) {
		fail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	s.issue(c, http.StatusOK, &u)
}

func (s *Server) issue(c *gin.Context, status int, u *UserModel) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		s.log.Error("issuing token", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Could not issue token")
		return
	}
	c.JSON(status, gin.H{"access_token": token, "token_type": "bearer", "user": u.toDomain()})
}

func (s *Server) register(c *gin.Context) {
	var reg identity.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	// ConfirmPassword is not part of the wire format.
	reg.ConfirmPassword = reg.Password
	if err := shared.Validate(reg); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	hash, err := hashPassword(reg.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	u := UserModel{
		Email:        strings.ToLower(reg.Email),
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        reg.Phone,
		Role:         identity.RoleUser,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") {
			fail(c, http.StatusBadRequest, "Email already registered")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": u.toDomain()})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).toDomain())
}

type meUpdate struct {
	FirstName   *string              `json:"first_name"`
	LastName    *string              `json:"last_name"`
	Phone       *string              `json:"phone"`
	Preferences identity.Preferences `json:"preferences"`
}

func (s *Server) updateMe(c *gin.Context) {
	var req meUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u := currentUser(c)
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Preferences != nil {
		u.Preferences = req.Preferences
	}
	if err := s.db.WithContext(c.Request.Context()).Save(u).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, u.toDomain())
}

func (s *Server) refresh(c *gin.Context) {
	s.issue(c, http.StatusOK, currentUser(c))
}
