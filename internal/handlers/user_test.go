package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Deepesh976/ro-iot/internal/models"
)

func (suite *HandlerTestSuite) TestRegisterThenLogin() {
	require := suite.Require()
	assert := suite.Assert()

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.RegisterUser,
		suite.jsonBody(models.AddUser{
			FullName:    "Asha Verma",
			PhoneNumber: "9876543210",
			Password:    "s3cret",
			Location:    "Pune",
		}),
	)
	require.NoError(err)
	require.Equal(http.StatusCreated, res.Code, res.Body.String())

	var registered models.RegisterResponse
	require.NoError(json.Unmarshal(res.Body.Bytes(), &registered))
	assert.NotEmpty(registered.UUID)

	_, res, err = suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginUser,
		suite.jsonBody(models.LoginRequest{PhoneNumber: "9876543210", Password: "s3cret"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var login models.LoginResponse
	require.NoError(json.Unmarshal(res.Body.Bytes(), &login))
	assert.NotEmpty(login.Token)
	assert.False(login.ExpiresAt.IsZero())
	assert.Equal(registered.UUID, login.User.UUID)

	claims, err := suite.api.tokens.Parse(login.Token)
	require.NoError(err)
	assert.Equal(login.User.ID.String(), claims.Subject)
}

func (suite *HandlerTestSuite) TestRegisterMissingFields() {
	require := suite.Require()

	for _, body := range []models.AddUser{
		{PhoneNumber: "9876543210", Password: "x", Location: "Pune"},
		{FullName: "A", Password: "x", Location: "Pune"},
		{FullName: "A", PhoneNumber: "9876543210", Location: "Pune"},
		{FullName: "A", PhoneNumber: "9876543210", Password: "x"},
		{FullName: "   ", PhoneNumber: "9876543210", Password: "x", Location: "Pune"},
	} {
		_, res, err := suite.ServeRequest(
			http.MethodPost, "/", "/",
			suite.api.RegisterUser, suite.jsonBody(body),
		)
		require.NoError(err)
		require.Equal(http.StatusBadRequest, res.Code, res.Body.String())
	}
}

func (suite *HandlerTestSuite) TestRegisterDuplicatePhone() {
	require := suite.Require()

	body := models.AddUser{
		FullName:    "Asha Verma",
		PhoneNumber: "9876543210",
		Password:    "s3cret",
		Location:    "Pune",
	}
	_, res, err := suite.ServeRequest(http.MethodPost, "/", "/", suite.api.RegisterUser, suite.jsonBody(body))
	require.NoError(err)
	require.Equal(http.StatusCreated, res.Code)

	body.FullName = "Someone Else"
	_, res, err = suite.ServeRequest(http.MethodPost, "/", "/", suite.api.RegisterUser, suite.jsonBody(body))
	require.NoError(err)
	require.Equal(http.StatusConflict, res.Code, res.Body.String())

	// exactly one record gained
	var count int64
	require.NoError(suite.api.db.Model(&models.User{}).Where("phone_number = ?", "9876543210").Count(&count).Error)
	require.Equal(int64(1), count)
}

func (suite *HandlerTestSuite) TestLoginNeverReturnsCredential() {
	require := suite.Require()

	suite.createTestUser("Asha Verma", "9876543210", "Pune")
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginUser,
		suite.jsonBody(models.LoginRequest{PhoneNumber: "9876543210", Password: "s3cret"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	raw, err := io.ReadAll(res.Body)
	require.NoError(err)
	require.NotContains(strings.ToLower(string(raw)), "password")

	var payload map[string]interface{}
	require.NoError(json.Unmarshal(raw, &payload))
	user, ok := payload["user"].(map[string]interface{})
	require.True(ok)
	require.NotContains(user, "password_hash")
}

func (suite *HandlerTestSuite) TestLoginUnknownPhone() {
	require := suite.Require()
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginUser,
		suite.jsonBody(models.LoginRequest{PhoneNumber: "0000000000", Password: "s3cret"}),
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code, res.Body.String())
}

func (suite *HandlerTestSuite) TestLoginWrongPassword() {
	require := suite.Require()
	suite.createTestUser("Asha Verma", "9876543210", "Pune")
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginUser,
		suite.jsonBody(models.LoginRequest{PhoneNumber: "9876543210", Password: "wrong"}),
	)
	require.NoError(err)
	require.Equal(http.StatusUnauthorized, res.Code, res.Body.String())
}

func (suite *HandlerTestSuite) TestListUsersExcludesCredential() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/", "/", suite.api.ListUsers, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	require.NotContains(res.Body.String(), "password_hash")

	var users []models.User
	require.NoError(json.Unmarshal(res.Body.Bytes(), &users))
	require.Len(users, 1)
}

func (suite *HandlerTestSuite) TestGetUserMe() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/:id", "/me", suite.api.GetUser, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var user models.User
	require.NoError(json.Unmarshal(res.Body.Bytes(), &user))
	require.Equal(suite.testUserID, user.ID)
}

func (suite *HandlerTestSuite) TestUpdateUserRehashesOnlyWhenPasswordSupplied() {
	require := suite.Require()
	assert := suite.Assert()

	var before models.User
	require.NoError(suite.api.db.First(&before, "id = ?", suite.testUserID).Error)

	// profile-only update keeps the hash
	_, res, err := suite.ServeRequest(
		http.MethodPatch, "/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.UpdateUser,
		suite.jsonBody(models.UpdateUser{Location: "Mumbai"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var after models.User
	require.NoError(suite.api.db.First(&after, "id = ?", suite.testUserID).Error)
	assert.Equal("Mumbai", after.Location)
	assert.Equal(before.PasswordHash, after.PasswordHash)
	assert.Equal(before.UUID, after.UUID)

	// password update rotates the hash
	_, res, err = suite.ServeRequest(
		http.MethodPatch, "/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.UpdateUser,
		suite.jsonBody(models.UpdateUser{Password: "newpass"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	require.NoError(suite.api.db.First(&after, "id = ?", suite.testUserID).Error)
	assert.NotEqual(before.PasswordHash, after.PasswordHash)

	// and the new password logs in
	_, res, err = suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginUser,
		suite.jsonBody(models.LoginRequest{PhoneNumber: before.PhoneNumber, Password: "newpass"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
}

func (suite *HandlerTestSuite) TestGetUserReadsThroughCache() {
	require := suite.Require()
	assert := suite.Assert()

	cache := newFakeCache()
	suite.api.Redis = cache
	defer func() { suite.api.Redis = nil }()

	// the first read misses and populates the cache
	_, res, err := suite.ServeRequest(
		http.MethodGet, "/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.GetUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())
	require.Len(cache.data, 1)

	// a write that bypasses the handlers is invisible while the entry lives
	require.NoError(suite.api.db.Model(&models.User{}).
		Where("id = ?", suite.testUserID).
		Update("location", "Chennai").Error)

	_, res, err = suite.ServeRequest(
		http.MethodGet, "/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.GetUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var user models.User
	require.NoError(json.Unmarshal(res.Body.Bytes(), &user))
	assert.Equal("Pune", user.Location)

	// an update through the handler invalidates, so the next read is fresh
	_, res, err = suite.ServeRequest(
		http.MethodPatch, "/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.UpdateUser,
		suite.jsonBody(models.UpdateUser{Location: "Mumbai"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())
	require.Empty(cache.data)

	_, res, err = suite.ServeRequest(
		http.MethodGet, "/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.GetUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	require.NoError(json.Unmarshal(res.Body.Bytes(), &user))
	assert.Equal("Mumbai", user.Location)
}

func (suite *HandlerTestSuite) TestLoginCachesProfile() {
	require := suite.Require()

	cache := newFakeCache()
	suite.api.Redis = cache
	defer func() { suite.api.Redis = nil }()

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginUser,
		suite.jsonBody(models.LoginRequest{PhoneNumber: "9000000001", Password: "s3cret"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())
	require.Len(cache.data, 1)

	// the cached encoding never carries the credential
	for _, v := range cache.data {
		require.NotContains(strings.ToLower(v), "password")
	}
}

func (suite *HandlerTestSuite) TestUpdateUserNotFound() {
	require := suite.Require()
	_, res, err := suite.ServeRequest(
		http.MethodPatch, "/:id", "/b5b6e558-ab98-4ae4-9a29-c7362b4b0e63",
		suite.api.UpdateUser,
		suite.jsonBody(models.UpdateUser{Location: "Mumbai"}),
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestDeleteUser() {
	require := suite.Require()

	userID := suite.createTestUser("To Delete", "9111111111", "Pune")
	_, res, err := suite.ServeRequest(
		http.MethodDelete, "/:id", fmt.Sprintf("/%s", userID),
		suite.api.DeleteUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	_, res, err = suite.ServeRequest(
		http.MethodDelete, "/:id", fmt.Sprintf("/%s", userID),
		suite.api.DeleteUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}
