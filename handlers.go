package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"paymgr/models"
	"paymgr/pkg/payments"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/payments", listPaymentsHandler)
	authGroup.POST("/payments", createPaymentHandler)
	authGroup.GET("/payments/summary", paymentSummaryHandler)
	authGroup.POST("/payments/delete", deleteSelectedHandler)
	authGroup.GET("/payments/:id", getPaymentHandler)
	authGroup.PUT("/payments/:id", editPaymentHandler)
	authGroup.DELETE("/payments/:id", deletePaymentHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// paymentRequest is the JSON body for create and edit. The amount accepts a
// JSON number or string; dates accept RFC3339 or plain YYYY-MM-DD.
type paymentRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Category    string          `json:"category"`
	Reference   *string         `json:"reference"`
	Version     int64           `json:"version"`
}

func (r paymentRequest) toCandidate() (models.Payment, bool) {
	p := models.Payment{
		Description: r.Description,
		Amount:      r.Amount,
		Category:    r.Category,
		Reference:   r.Reference,
		Version:     r.Version,
	}
	if r.PaymentDate != "" {
		t, err := time.Parse(time.RFC3339, r.PaymentDate)
		if err != nil {
			t, err = time.Parse("2006-01-02", r.PaymentDate)
		}
		if err != nil {
			return p, false
		}
		p.PaymentDate = t
	}
	return p, true
}

// writePaymentError maps a facade outcome onto an HTTP response.
func writePaymentError(c *gin.Context, err error) {
	if ve, ok := payments.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
		return
	}
	switch {
	case errors.Is(err, payments.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "this payment already exists"})
	case errors.Is(err, payments.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case errors.Is(err, payments.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "payment was modified by another user, review the changes and retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paymentIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return 0, false
	}
	return uint(id), true
}

// listPaymentsHandler returns all payments, most recent payment date first.
func listPaymentsHandler(c *gin.Context) {
	items, err := payments.NewStore(db).List()
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func getPaymentHandler(c *gin.Context) {
	id, ok := paymentIDParam(c)
	if !ok {
		return
	}
	rec, err := payments.NewStore(db).Get(id)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func createPaymentHandler(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candidate, ok := req.toCandidate()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": gin.H{"payment_date": "invalid date, use RFC3339 or YYYY-MM-DD"}})
		return
	}
	rec, err := payments.NewStore(db).Create(candidate)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func editPaymentHandler(c *gin.Context) {
	id, ok := paymentIDParam(c)
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candidate, okDate := req.toCandidate()
	if !okDate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": gin.H{"payment_date": "invalid date, use RFC3339 or YYYY-MM-DD"}})
		return
	}
	rec, err := payments.NewStore(db).Edit(id, candidate)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func deletePaymentHandler(c *gin.Context) {
	id, ok := paymentIDParam(c)
	if !ok {
		return
	}
	removed, err := payments.NewStore(db).Delete(id)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusOK, gin.H{"message": "payment did not exist or was already deleted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment deleted"})
}

// deleteSelectedHandler removes the payments whose ids are listed in the body.
// Ids that match nothing are ignored; the response carries the actual count.
func deleteSelectedHandler(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids"`
	}
	// an absent body means nothing selected, which is a no-op
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := payments.NewStore(db).DeleteMany(req.IDs)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// paymentSummaryHandler returns per-category totals.
func paymentSummaryHandler(c *gin.Context) {
	rows, err := payments.NewStore(db).SummaryByCategory()
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := RegisterUser(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// create refresh token
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	// generate random 32-byte token (hex)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	// load user
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	// create access token
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}
