package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"wellog/models"
	"wellog/pkg/scan"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/entries", createEntryHandler)
	authGroup.GET("/entries", listEntriesHandler)
	authGroup.GET("/entries/mood_summary", moodSummaryHandler)
	authGroup.GET("/entries/:id", getEntryHandler)
	authGroup.POST("/profile", createProfileHandler)
	authGroup.GET("/profile", getProfileHandler)
	authGroup.POST("/uploads", uploadFileHandler)
	authGroup.GET("/uploads", listUploadsHandler)
	authGroup.GET("/uploads/:id", getUploadHandler)
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

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// createEntryHandler creates a JournalEntry typed in directly (no photo).
func createEntryHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		FileName   string   `json:"file_name"`
		FreeText   string   `json:"free_text"`
		Mood       *int     `json:"mood"`
		SleepHours *float64 `json:"sleep_hours"`
		Activities []string `json:"activities"`
		Date       string   `json:"date"` // optional RFC3339
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mood != nil && (*req.Mood < 0 || *req.Mood > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mood must be between 0 and 100"})
		return
	}
	if req.SleepHours != nil && (*req.SleepHours < 0 || *req.SleepHours > 24) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sleep_hours must be between 0 and 24"})
		return
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}
	// one entry per user+file
	var existing models.JournalEntry
	if err := db.Where("user_id = ? AND file_name = ?", user.ID, fileName).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "entry already exists for this file", "id": existing.ID})
		return
	}
	entry := models.JournalEntry{
		UserID:     user.ID,
		FileName:   fileName,
		FreeText:   req.FreeText,
		Mood:       req.Mood,
		SleepHours: req.SleepHours,
		Activities: strings.Join(req.Activities, ", "),
	}
	if req.Date != "" {
		t, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be RFC3339"})
			return
		}
		entry.Date = t
	} else {
		entry.Date = time.Now()
	}
	if err := db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": entry.ID})
}

// listEntriesHandler lists recent entries. Admin sees everything, a regular
// user only their own.
func listEntriesHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	role, _ := c.Get("role")
	q := db.Model(&models.JournalEntry{})
	if role != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	var items []models.JournalEntry
	if err := q.Order("date desc, id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func getEntryHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	role, _ := c.Get("role")
	var entry models.JournalEntry
	if err := db.First(&entry, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if role != "administrator" && entry.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// moodSummaryHandler returns average mood and sleep per calendar month.
// NULL moods and sleep values are skipped by avg() so unscored entries
// don't drag the numbers down.
func moodSummaryHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	role, _ := c.Get("role")
	type monthRow struct {
		Month    string  `json:"month"`
		AvgMood  float64 `json:"avg_mood"`
		AvgSleep float64 `json:"avg_sleep"`
		Entries  int64   `json:"entries"`
	}
	q := db.Model(&models.JournalEntry{})
	if role != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	var rows []monthRow
	err := q.Select("to_char(date, 'YYYY-MM') as month, coalesce(avg(mood), 0) as avg_mood, coalesce(avg(sleep_hours), 0) as avg_sleep, count(*) as entries").
		Group("to_char(date, 'YYYY-MM')").
		Order("month").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
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
	if err := Register(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func createProfileHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Timezone string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timezone"})
			return
		}
	}
	profile := models.Profile{UserID: user.ID, Name: req.Name, Email: req.Email, Phone: req.Phone, Timezone: req.Timezone}
	if err := db.Create(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": profile.ID})
}

func getProfileHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var p models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
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
	user, err := Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id now).
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
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
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
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
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

// uploadFileHandler receives a photographed journal page, stores it under the
// profile's folder, runs the scan pipeline and creates the extracted entry.
func uploadFileHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var profile models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "create a profile before uploading"})
		return
	}
	folder := c.PostForm("folder")
	if folder == "" {
		folder = "journal"
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 10*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	baseDir := uploadBaseDir()
	relPath := folder + "/" + file.Filename
	fullPath := baseDir + "/" + relPath
	if err := os.MkdirAll(baseDir+"/"+folder, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	storePath := "public/" + relPath

	// If an upload record for this profile+filename already exists reuse it,
	// rescanning when the earlier attempt produced no entry.
	var existingUp models.Upload
	if err := db.Where("profile_id = ? AND file_name = ?", profile.ID, file.Filename).First(&existingUp).Error; err == nil {
		if existingUp.EntryID == nil {
			scanUploadedPage(c, &profile, &existingUp, fullPath)
		}
		c.JSON(http.StatusOK, gin.H{"id": existingUp.ID, "path": relPath, "store_path": existingUp.StorePath, "entry_id": existingUp.EntryID, "failed": existingUp.Failed})
		return
	}

	up := models.Upload{ProfileID: profile.ID, FileName: file.Filename, StorePath: storePath, ContentType: file.Header.Get("Content-Type")}
	if err := db.Create(&up).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	scanUploadedPage(c, &profile, &up, fullPath)
	c.JSON(http.StatusOK, gin.H{"id": up.ID, "path": relPath, "store_path": storePath, "entry_id": up.EntryID, "confidence": up.Confidence, "failed": up.Failed, "failed_reason": up.FailedReason})
}

// scanUploadedPage runs the pipeline on a stored upload and links (or creates)
// the JournalEntry for it. Pipeline failure marks the upload rather than
// failing the request; a page where nothing legible was read still yields an
// entry with empty fields.
func scanUploadedPage(c *gin.Context, profile *models.Profile, up *models.Upload, fullPath string) {
	opts := scan.Options{AttemptTimeout: scanAttemptTimeout()}
	if profile.Timezone != "" {
		if loc, err := time.LoadLocation(profile.Timezone); err == nil {
			opts.Now = func() time.Time { return time.Now().In(loc) }
		}
	}
	ps, err := scan.Run(c.Request.Context(), fullPath, opts)
	if err != nil {
		up.Failed = true
		up.FailedReason = err.Error()
		db.Save(up)
		return
	}
	up.WonProfile = ps.WonProfile
	up.WonRotation = ps.WonRotation
	up.Confidence = ps.Confidence
	up.Failed = false
	up.FailedReason = ""

	var existing models.JournalEntry
	if err := db.Where("user_id = ? AND file_name = ?", profile.UserID, up.FileName).First(&existing).Error; err == nil {
		up.EntryID = &existing.ID
		db.Save(up)
		return
	}
	entry := models.JournalEntry{
		UserID:     profile.UserID,
		FileName:   up.FileName,
		FreeText:   ps.Record.FreeText,
		Mood:       ps.Record.Mood,
		SleepHours: ps.Record.SleepHours,
		Activities: strings.Join(ps.Record.Activities, ", "),
		Date:       ps.Record.Date,
	}
	if err := db.Create(&entry).Error; err == nil {
		up.EntryID = &entry.ID
	}
	db.Save(up)
}

// scanAttemptTimeout reads OCR_TIMEOUT_SECONDS (per recognition attempt).
func scanAttemptTimeout() time.Duration {
	if v := os.Getenv("OCR_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 30 * time.Second
}

// listUploadsHandler returns uploads; admin sees all, user only own profile's uploads.
func listUploadsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	role, _ := c.Get("role")
	var profile models.Profile
	db.Where("user_id = ?", user.ID).First(&profile)
	q := db.Model(&models.Upload{})
	if role != "administrator" {
		q = q.Where("profile_id = ?", profile.ID)
	}
	var uploads []models.Upload
	if err := q.Order("id desc").Limit(100).Find(&uploads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, uploads)
}

// getUploadHandler returns a single upload if admin or owner.
func getUploadHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	role, _ := c.Get("role")
	var profile models.Profile
	db.Where("user_id = ?", user.ID).First(&profile)
	var up models.Upload
	if err := db.First(&up, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if role != "administrator" && up.ProfileID != profile.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, up)
}
