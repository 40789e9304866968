package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Deepesh976/ro-iot/internal/auth"
	"github.com/Deepesh976/ro-iot/internal/database"
	"github.com/Deepesh976/ro-iot/internal/models"
)

// RegisterUser registers a new customer account
// @Summary      Register User
// @Description  Registers a new customer with a unique phone number
// @Id           RegisterUser
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user  body  models.AddUser  true  "Add User"
// @Success      201  {object}  models.RegisterResponse
// @Failure      400  {object}  models.ValidationError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/auth/register [post]
func (api *API) RegisterUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "RegisterUser")
	defer span.End()

	var request models.AddUser
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	request.FullName = strings.TrimSpace(request.FullName)
	request.PhoneNumber = strings.TrimSpace(request.PhoneNumber)
	request.Location = strings.TrimSpace(request.Location)
	for field, value := range map[string]string{
		"full_name":    request.FullName,
		"phone_number": request.PhoneNumber,
		"password":     request.Password,
		"location":     request.Location,
	} {
		if value == "" {
			c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError(field))
			return
		}
	}

	hash, err := auth.HashPassword(request.Password)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}

	user := models.User{
		UUID:         uuid.NewString(),
		FullName:     request.FullName,
		PhoneNumber:  request.PhoneNumber,
		Location:     request.Location,
		PasswordHash: hash,
		RegisteredAt: time.Now().UTC(),
	}

	err = api.transaction(ctx, func(tx *gorm.DB) error {
		var existing models.User
		if res := tx.First(&existing, "phone_number = ?", request.PhoneNumber); res.Error == nil {
			return NewApiResponseError(http.StatusConflict, models.NewConflictsError(existing.ID.String()))
		} else if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}
		if res := tx.Create(&user); res.Error != nil {
			// Two concurrent registrations can both pass the pre-check. The
			// unique index decides the winner; the loser gets a conflict.
			if database.IsDuplicateError(res.Error) {
				return NewApiResponseError(http.StatusConflict, models.NewConflictsError(request.PhoneNumber))
			}
			return res.Error
		}
		return nil
	})
	if err != nil {
		var apiResponseError *ApiResponseError
		if errors.As(err, &apiResponseError) {
			c.JSON(apiResponseError.Status, apiResponseError.Body)
		} else {
			api.SendInternalServerError(c, err)
		}
		return
	}

	span.SetAttributes(attribute.String("user_id", user.ID.String()))
	c.JSON(http.StatusCreated, models.RegisterResponse{UUID: user.UUID})
}

// LoginUser authenticates a customer and issues a session token
// @Summary      Login
// @Description  Verifies phone number and password and returns a signed session token
// @Id           LoginUser
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  models.LoginRequest  true  "Credentials"
// @Success      200  {object}  models.LoginResponse
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/auth/login [post]
func (api *API) LoginUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "LoginUser")
	defer span.End()

	var request models.LoginRequest
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	if request.PhoneNumber == "" {
		c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError("phone_number"))
		return
	}
	if request.Password == "" {
		c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError("password"))
		return
	}

	var user models.User
	db := api.db.WithContext(ctx)
	if res := db.First(&user, "phone_number = ?", request.PhoneNumber); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.NewNotFoundError("user"))
		} else {
			api.SendInternalServerError(c, res.Error)
		}
		return
	}

	if !auth.CheckPassword(user.PasswordHash, request.Password) {
		c.JSON(http.StatusUnauthorized, models.NewUnauthorizedError("invalid credentials"))
		return
	}

	token, expiresAt, err := api.tokens.Issue(user.ID, user.PhoneNumber, time.Now())
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}

	api.cacheUser(c, &user)

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// ListUsers lists users
// @Summary      List Users
// @Description  Lists all users
// @Id           ListUsers
// @Tags         Users
// @Accept       json
// @Produce      json
// @Success      200  {object}  []models.User
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users [get]
func (api *API) ListUsers(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListUsers")
	defer span.End()
	users := make([]*models.User, 0)
	db := api.db.WithContext(ctx)
	db = FilterAndPaginate(db, &models.User{}, c, "full_name")
	result := db.Find(&users)

	if result.Error != nil {
		api.SendInternalServerError(c, errors.New("error fetching keys from db"))
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser gets a user
// @Summary      Get User
// @Description  Gets a user by id, or the calling user with id "me"
// @Id           GetUser
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id  path       string  true  "User ID"
// @Success      200  {object}  models.User
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users/{id} [get]
func (api *API) GetUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetUser",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	var userId uuid.UUID
	var err error
	if c.Param("id") == "me" {
		userId = api.GetCurrentUserID(c)
	} else {
		userId, err = uuid.Parse(c.Param("id"))
		if err != nil || userId == uuid.Nil {
			c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
			return
		}
	}

	if cached, ok := api.getCachedUser(c, userId); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	var user models.User
	db := api.db.WithContext(ctx)
	if res := db.First(&user, "id = ?", userId); res.Error != nil {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("user"))
		return
	}
	api.cacheUser(c, &user)
	c.JSON(http.StatusOK, user)
}

// UpdateUser updates a user
// @Summary      Update User
// @Description  Updates profile fields; the password is re-hashed only when a new one is supplied
// @Id           UpdateUser
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "User ID"
// @Param        user  body  models.UpdateUser true  "Update User"
// @Success      200  {object}  models.User
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users/{id} [patch]
func (api *API) UpdateUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "UpdateUser",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	userId, err := uuid.Parse(c.Param("id"))
	if err != nil || userId == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	var request models.UpdateUser
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	var user models.User
	err = api.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&user, "id = ?", userId); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NewApiResponseError(http.StatusNotFound, models.NewNotFoundError("user"))
			}
			return res.Error
		}

		if v := strings.TrimSpace(request.FullName); v != "" {
			user.FullName = v
		}
		if v := strings.TrimSpace(request.PhoneNumber); v != "" {
			user.PhoneNumber = v
		}
		if v := strings.TrimSpace(request.Location); v != "" {
			user.Location = v
		}
		if request.Password != "" {
			hash, err := auth.HashPassword(request.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if res := tx.Save(&user); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return NewApiResponseError(http.StatusConflict, models.NewConflictsError(user.PhoneNumber))
			}
			return res.Error
		}
		return nil
	})
	if err != nil {
		var apiResponseError *ApiResponseError
		if errors.As(err, &apiResponseError) {
			c.JSON(apiResponseError.Status, apiResponseError.Body)
		} else {
			api.SendInternalServerError(c, err)
		}
		return
	}

	api.dropCachedUser(c, userId)
	c.JSON(http.StatusOK, user)
}

// DeleteUser delete a user
// @Summary      Delete User
// @Description  Deletes a user. Devices owned by the user are not removed; their
// owner snapshot keeps the deleted user's uuid and the owner reference no
// longer resolves.
// @Id           DeleteUser
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id  path       string  true  "User ID"
// @Success      200  {object}  models.User
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users/{id} [delete]
func (api *API) DeleteUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "DeleteUser")
	defer span.End()

	userId, err := uuid.Parse(c.Param("id"))
	if err != nil || userId == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	var user models.User
	err = api.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&user, "id = ?", userId); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NewApiResponseError(http.StatusNotFound, models.NewNotFoundError("user"))
			}
			return res.Error
		}
		if res := tx.Delete(&models.User{}, "id = ?", userId); res.Error != nil {
			return res.Error
		}
		return nil
	})
	if err != nil {
		var apiResponseError *ApiResponseError
		if errors.As(err, &apiResponseError) {
			c.JSON(apiResponseError.Status, apiResponseError.Body)
		} else {
			api.SendInternalServerError(c, err)
		}
		return
	}

	api.dropCachedUser(c, userId)
	c.JSON(http.StatusOK, user)
}

// cacheUser stores a user's profile keyed by record id. Failures are logged
// and ignored; the cache is an optimization, not a dependency. The password
// hash never enters the cache since it is excluded from serialization.
func (api *API) cacheUser(c *gin.Context, user *models.User) {
	if api.Redis == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s%s", CachePrefix, user.ID)
	if err := api.Redis.Set(c.Request.Context(), key, data, CacheExp).Err(); err != nil {
		api.logger.Warnf("failed to cache the user:%s", err)
	}
}

// getCachedUser returns the cached profile for the id. A cache error or a
// stale encoding both count as a miss.
func (api *API) getCachedUser(c *gin.Context, id uuid.UUID) (*models.User, bool) {
	if api.Redis == nil {
		return nil, false
	}
	key := fmt.Sprintf("%s%s", CachePrefix, id)
	data, err := api.Redis.Get(c.Request.Context(), key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			api.logger.Warnf("failed to read the cached user:%s", err)
		}
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, false
	}
	return &user, true
}

func (api *API) dropCachedUser(c *gin.Context, ids ...uuid.UUID) {
	if api.Redis == nil {
		return
	}
	for _, id := range ids {
		key := fmt.Sprintf("%s%s", CachePrefix, id)
		if _, err := api.Redis.Del(c.Request.Context(), key).Result(); err != nil {
			api.logger.Warnf("failed to delete the cache user:%s", err)
		}
	}
}
