package fakeapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"watchstore/internal/models"
)

const (
	HeaderToken        = "token"
	HeaderRefreshToken = "refresh_token"

	ctxClientID = "client_id"
	ctxRole     = "role"
)

// issueLocked mints an access/refresh pair for rec. Caller holds s.mu.
func (s *Server) issueLocked(rec *clientRecord) (access, refresh string, err error) {
	if s.opts.OpaqueTokens {
		access = "opaque-" + uuid.NewString()
	} else {
		claims := jwt.MapClaims{
			"id":       rec.ID,
			"email":    rec.Email,
			"userName": rec.DisplayName(),
			"role":     string(rec.role),
			"jti":      uuid.NewString(),
			"exp":      s.now().Add(s.opts.AccessTTL).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		access, err = token.SignedString([]byte(s.opts.Secret))
		if err != nil {
			return "", "", err
		}
	}
	refresh = uuid.NewString()
	s.access[access] = rec.ID
	s.refresh[refresh] = rec.ID
	return access, refresh, nil
}

func (s *Server) respondTokens(c *gin.Context, status int, access, refresh string) {
	if s.opts.TokensInHeaders {
		c.Header(HeaderToken, access)
		c.Header(HeaderRefreshToken, refresh)
		c.JSON(status, gin.H{"message": "ok"})
		return
	}
	c.JSON(status, gin.H{"token": access, "refreshToken": refresh})
}

func (s *Server) login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(input.Email)]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	rec := s.clients[id]
	if bcrypt.CompareHashAndPassword(rec.hash, []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	access, refresh, err := s.issueLocked(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.respondTokens(c, http.StatusOK, access, refresh)
}

func (s *Server) logout(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.access[token]; ok {
		delete(s.access, token)
		for rt, owner := range s.refresh {
			if owner == id {
				delete(s.refresh, rt)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) refreshToken(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.refresh[input.RefreshToken]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	delete(s.refresh, input.RefreshToken)

	access, refresh, err := s.issueLocked(s.clients[id])
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.respondTokens(c, http.StatusOK, access, refresh)
}

// authRequired accepts a bearer token this server issued and still honors.
func (s *Server) authRequired(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if h := s.opts.RequireHeader; h != "" && c.GetHeader(h) != token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + h + " header"})
		return
	}

	if !s.opts.OpaqueTokens {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.opts.Secret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	s.mu.Lock()
	id, ok := s.access[token]
	var role models.Role
	if ok {
		role = s.clients[id].role
	}
	s.mu.Unlock()

	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
		return
	}
	c.Set(ctxClientID, id)
	c.Set(ctxRole, role)
	c.Next()
}

func requireAdmin(c *gin.Context) {
	role, _ := c.Get(ctxRole)
	if role != models.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	c.Next()
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get(ctxRole)
	return role == models.RoleAdmin
}

func bearerToken(h string) string {
	parts := strings.SplitN(strings.TrimSpace(h), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// newClientLocked stores a client record. Caller holds s.mu.
func (s *Server) newClientLocked(cl models.Client, password string, role models.Role) *clientRecord {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	cl.Password = ""
	if role == "" {
		role = models.RoleClient
	}
	rec := &clientRecord{Client: cl, hash: hash, role: role}
	s.clients[cl.ID] = rec
	s.byEmail[strings.ToLower(cl.Email)] = cl.ID
	return rec
}
