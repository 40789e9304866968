package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Deepesh976/ro-iot/internal/models"
)

func (suite *HandlerTestSuite) createTestDevice(deviceID string, ownerID uuid.UUID) models.Device {
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateDevice,
		suite.jsonBody(models.AddDevice{
			DeviceID: deviceID,
			Model:    "AquaSoft 2000",
			OwnerID:  ownerID,
		}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusCreated, res.Code, res.Body.String())

	var device models.Device
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &device))
	return device
}

func (suite *HandlerTestSuite) TestCreateGetDevice() {
	require := suite.Require()
	assert := suite.Assert()

	created := suite.createTestDevice("RO22D481", suite.testUserID)
	assert.Equal("RO22D481", created.DeviceID)
	assert.Equal(models.DefaultDeviceStatus, created.Status)
	assert.Equal(models.DefaultFirmwareVersion, created.FirmwareVersion)
	assert.Equal(suite.testUserID, created.OwnerID)
	assert.False(created.RegisteredAt.IsZero())
	assert.False(created.LastSeenAt.IsZero())

	var owner models.User
	require.NoError(suite.api.db.First(&owner, "id = ?", suite.testUserID).Error)
	assert.Equal(owner.UUID, created.OwnerUUID)

	_, res, err := suite.ServeRequest(
		http.MethodGet, "/:id", fmt.Sprintf("/%s", created.ID),
		suite.api.GetDevice, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var device models.Device
	require.NoError(json.Unmarshal(res.Body.Bytes(), &device))
	assert.Equal(created.ID, device.ID)
	require.NotNil(device.Owner)
	assert.Equal(owner.FullName, device.Owner.FullName)
	assert.Equal(owner.UUID, device.Owner.UUID)
}

func (suite *HandlerTestSuite) TestCreateDeviceMissingFields() {
	require := suite.Require()

	for _, body := range []models.AddDevice{
		{Model: "AquaSoft 2000", OwnerID: suite.testUserID},
		{DeviceID: "RO22D481", OwnerID: suite.testUserID},
		{DeviceID: "RO22D481", Model: "AquaSoft 2000"},
	} {
		_, res, err := suite.ServeRequest(
			http.MethodPost, "/", "/",
			suite.api.CreateDevice, suite.jsonBody(body),
		)
		require.NoError(err)
		require.Equal(http.StatusBadRequest, res.Code, res.Body.String())
	}
}

func (suite *HandlerTestSuite) TestCreateDeviceUnknownOwner() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateDevice,
		suite.jsonBody(models.AddDevice{
			DeviceID: "RO22D481",
			Model:    "AquaSoft 2000",
			OwnerID:  uuid.New(),
		}),
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code, res.Body.String())

	// nothing was persisted
	var count int64
	require.NoError(suite.api.db.Model(&models.Device{}).Count(&count).Error)
	require.Equal(int64(0), count)
}

func (suite *HandlerTestSuite) TestDeviceIDCaseNormalization() {
	require := suite.Require()
	assert := suite.Assert()

	created := suite.createTestDevice("abc123", suite.testUserID)
	assert.Equal("ABC123", created.DeviceID)

	// lookup with the lowercase serial still resolves
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LoginDevice,
		suite.jsonBody(models.DeviceLogin{DeviceID: "abc123"}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var device models.Device
	require.NoError(json.Unmarshal(res.Body.Bytes(), &device))
	assert.Equal("ABC123", device.DeviceID)

	// a differently-cased duplicate conflicts
	_, res, err = suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateDevice,
		suite.jsonBody(models.AddDevice{
			DeviceID: "Abc123",
			Model:    "AquaSoft 2000",
			OwnerID:  suite.testUserID,
		}),
	)
	require.NoError(err)
	require.Equal(http.StatusConflict, res.Code, res.Body.String())
}

func (suite *HandlerTestSuite) TestUpdateDeviceReassignsOwner() {
	require := suite.Require()
	assert := suite.Assert()

	userB := suite.createTestUser("User B", "9222222222", "Delhi")
	created := suite.createTestDevice("RO22D481", suite.testUserID)

	_, res, err := suite.ServeRequest(
		http.MethodPatch, "/:id", fmt.Sprintf("/%s", created.ID),
		suite.api.UpdateDevice,
		suite.jsonBody(models.UpdateDevice{
			DeviceID: "RO22D481",
			Model:    "AquaSoft 2000",
			OwnerID:  userB,
		}),
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var updated models.Device
	require.NoError(json.Unmarshal(res.Body.Bytes(), &updated))

	var ownerB models.User
	require.NoError(suite.api.db.First(&ownerB, "id = ?", userB).Error)

	// the uuid snapshot now belongs to user B, not the original owner
	assert.Equal(userB, updated.OwnerID)
	assert.Equal(ownerB.UUID, updated.OwnerUUID)
	assert.NotEqual(created.OwnerUUID, updated.OwnerUUID)
	assert.True(updated.LastSeenAt.After(created.LastSeenAt) || updated.LastSeenAt.Equal(created.LastSeenAt))
}

func (suite *HandlerTestSuite) TestUpdateDeviceUnknownRecord() {
	require := suite.Require()
	_, res, err := suite.ServeRequest(
		http.MethodPatch, "/:id", fmt.Sprintf("/%s", uuid.New()),
		suite.api.UpdateDevice,
		suite.jsonBody(models.UpdateDevice{
			DeviceID: "RO22D481",
			Model:    "AquaSoft 2000",
			OwnerID:  suite.testUserID,
		}),
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code, res.Body.String())
}

func (suite *HandlerTestSuite) TestListDevicesExpandsOwner() {
	require := suite.Require()
	assert := suite.Assert()

	suite.createTestDevice("RO22D481", suite.testUserID)
	suite.createTestDevice("RO22D482", suite.testUserID)

	_, res, err := suite.ServeRequest(http.MethodGet, "/", "/", suite.api.ListDevices, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var devices []models.Device
	require.NoError(json.Unmarshal(res.Body.Bytes(), &devices))
	require.Len(devices, 2)
	for _, d := range devices {
		require.NotNil(d.Owner)
		assert.Equal("testuser", d.Owner.FullName)
		assert.NotEmpty(d.Owner.UUID)
	}
}

func (suite *HandlerTestSuite) TestDeleteDevice() {
	require := suite.Require()

	created := suite.createTestDevice("RO22D481", suite.testUserID)
	_, res, err := suite.ServeRequest(
		http.MethodDelete, "/:id", fmt.Sprintf("/%s", created.ID),
		suite.api.DeleteDevice, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	_, res, err = suite.ServeRequest(
		http.MethodDelete, "/:id", fmt.Sprintf("/%s", created.ID),
		suite.api.DeleteDevice, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

// Deleting a user that still owns devices succeeds. The devices are kept:
// their owner snapshot retains the deleted user's uuid, while the live owner
// reference no longer resolves and list responses carry no owner expansion.
func (suite *HandlerTestSuite) TestDeleteUserKeepsOrphanedDevices() {
	require := suite.Require()
	assert := suite.Assert()

	owner := suite.createTestUser("Leaving Customer", "9333333333", "Pune")
	created := suite.createTestDevice("RO22D483", owner)

	_, res, err := suite.ServeRequest(
		http.MethodDelete, "/:id", fmt.Sprintf("/%s", owner),
		suite.api.DeleteUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	_, res, err = suite.ServeRequest(
		http.MethodGet, "/:id", fmt.Sprintf("/%s", created.ID),
		suite.api.GetDevice, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var device models.Device
	require.NoError(json.Unmarshal(res.Body.Bytes(), &device))
	assert.Equal(created.OwnerUUID, device.OwnerUUID)
	assert.Nil(device.Owner)
}
