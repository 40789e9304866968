package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Deepesh976/ro-iot/internal/database"
	"github.com/Deepesh976/ro-iot/internal/models"
)

// NormalizeDeviceID uppercases a device serial. Applied before every
// comparison and store so the same serial in any case maps to one record.
func NormalizeDeviceID(deviceID string) string {
	return strings.ToUpper(strings.TrimSpace(deviceID))
}

func (api *API) validateDeviceRequest(c *gin.Context, request *models.AddDevice) bool {
	request.DeviceID = NormalizeDeviceID(request.DeviceID)
	request.Model = strings.TrimSpace(request.Model)
	if request.DeviceID == "" {
		c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError("device_id"))
		return false
	}
	if request.Model == "" {
		c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError("model"))
		return false
	}
	if request.OwnerID == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError("owner_id"))
		return false
	}
	if request.Status == "" {
		request.Status = models.DefaultDeviceStatus
	}
	if request.FirmwareVersion == "" {
		request.FirmwareVersion = models.DefaultFirmwareVersion
	}
	return true
}

// CreateDevice handles adding a new device
// @Summary      Add Device
// @Description  Registers a new softener unit to an existing customer
// @Id           CreateDevice
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        device  body   models.AddDevice  true "Add Device"
// @Success      201  {object}  models.Device
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/devices [post]
func (api *API) CreateDevice(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CreateDevice")
	defer span.End()

	var request models.AddDevice
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	if !api.validateDeviceRequest(c, &request) {
		return
	}
	span.SetAttributes(attribute.String("device_id", request.DeviceID))

	now := time.Now().UTC()
	var device models.Device
	err := api.transaction(ctx, func(tx *gorm.DB) error {
		var existing models.Device
		if res := tx.First(&existing, "device_id = ?", request.DeviceID); res.Error == nil {
			return NewApiResponseError(http.StatusConflict, models.NewConflictsError(existing.ID.String()))
		} else if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}

		// The owner must resolve at the moment of the write. The store has no
		// foreign keys, so a missing owner is a recoverable caller error.
		var owner models.User
		if res := tx.First(&owner, "id = ?", request.OwnerID); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NewApiResponseError(http.StatusNotFound, models.NewNotFoundError("owner"))
			}
			return res.Error
		}

		device = models.Device{
			DeviceID: request.DeviceID,
			Model:    request.Model,
			Location: models.DeviceLocation{
				Address:   request.Address,
				Latitude:  request.Latitude,
				Longitude: request.Longitude,
			},
			Status:          request.Status,
			FirmwareVersion: request.FirmwareVersion,
			OwnerID:         owner.ID,
			OwnerUUID:       owner.UUID,
			RegisteredAt:    now,
			LastSeenAt:      now,
		}
		device.Owner = &models.DeviceOwner{FullName: owner.FullName, UUID: owner.UUID}

		if res := tx.Create(&device); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return NewApiResponseError(http.StatusConflict, models.NewConflictsError(request.DeviceID))
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

	c.JSON(http.StatusCreated, device)
}

// UpdateDevice updates a device
// @Summary      Update Device
// @Description  Updates a device; the owner reference is re-resolved and the owner uuid snapshot re-copied
// @Id           UpdateDevice
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        id      path   string               true "Device record ID"
// @Param        device  body   models.UpdateDevice  true "Update Device"
// @Success      200  {object}  models.Device
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/devices/{id} [patch]
func (api *API) UpdateDevice(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "UpdateDevice",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	deviceRecordId, err := uuid.Parse(c.Param("id"))
	if err != nil || deviceRecordId == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	var request models.UpdateDevice
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	if !api.validateDeviceRequest(c, &request) {
		return
	}

	var device models.Device
	err = api.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&device, "id = ?", deviceRecordId); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NewApiResponseError(http.StatusNotFound, models.NewNotFoundError("device"))
			}
			return res.Error
		}

		var existing models.Device
		if res := tx.Where("device_id = ? AND id <> ?", request.DeviceID, deviceRecordId).
			First(&existing); res.Error == nil {
			return NewApiResponseError(http.StatusConflict, models.NewConflictsError(existing.ID.String()))
		} else if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}

		// Ownership may have changed; re-resolve and re-copy the uuid snapshot
		// from the current owner rather than trusting the stored copy.
		var owner models.User
		if res := tx.First(&owner, "id = ?", request.OwnerID); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NewApiResponseError(http.StatusNotFound, models.NewNotFoundError("owner"))
			}
			return res.Error
		}

		device.DeviceID = request.DeviceID
		device.Model = request.Model
		device.Location = models.DeviceLocation{
			Address:   request.Address,
			Latitude:  request.Latitude,
			Longitude: request.Longitude,
		}
		device.Status = request.Status
		device.FirmwareVersion = request.FirmwareVersion
		device.OwnerID = owner.ID
		device.OwnerUUID = owner.UUID
		device.LastSeenAt = time.Now().UTC()
		device.Owner = &models.DeviceOwner{FullName: owner.FullName, UUID: owner.UUID}

		if res := tx.Save(&device); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return NewApiResponseError(http.StatusConflict, models.NewConflictsError(request.DeviceID))
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

	c.JSON(http.StatusOK, device)
}

// ListDevices lists all devices
// @Summary      List Devices
// @Description  Lists all devices with the owner identity expanded
// @Id           ListDevices
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Success      200  {object}  []models.Device
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/devices [get]
func (api *API) ListDevices(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListDevices")
	defer span.End()
	devices := make([]*models.Device, 0)
	db := api.db.WithContext(ctx)
	db = FilterAndPaginate(db, &models.Device{}, c, "device_id")
	result := db.Find(&devices)
	if result.Error != nil {
		api.SendInternalServerError(c, errors.New("error fetching keys from db"))
		return
	}

	if err := api.expandOwners(ctx, devices); err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

// GetDevice gets a device by ID
// @Summary      Get Device
// @Description  Gets a device by its record ID
// @Id           GetDevice
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Device record ID"
// @Success      200  {object}  models.Device
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Router       /api/devices/{id} [get]
func (api *API) GetDevice(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetDevice",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	deviceRecordId, err := uuid.Parse(c.Param("id"))
	if err != nil || deviceRecordId == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	var device models.Device
	db := api.db.WithContext(ctx)
	if res := db.First(&device, "id = ?", deviceRecordId); res.Error != nil {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("device"))
		return
	}
	devices := []*models.Device{&device}
	if err := api.expandOwners(ctx, devices); err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// DeleteDevice deletes a device
// @Summary      Delete Device
// @Description  Deletes a device by its record ID
// @Id           DeleteDevice
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Device record ID"
// @Success      200  {object}  models.Device
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.UnauthorizedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/devices/{id} [delete]
func (api *API) DeleteDevice(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "DeleteDevice",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	deviceRecordId, err := uuid.Parse(c.Param("id"))
	if err != nil || deviceRecordId == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	var device models.Device
	err = api.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&device, "id = ?", deviceRecordId); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NewApiResponseError(http.StatusNotFound, models.NewNotFoundError("device"))
			}
			return res.Error
		}
		if res := tx.Delete(&models.Device{}, "id = ?", deviceRecordId); res.Error != nil {
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

	c.JSON(http.StatusOK, device)
}

// LoginDevice looks up a device by its serial
// @Summary      Device Lookup
// @Description  Finds a registered device by its serial, case-insensitively
// @Id           LoginDevice
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        device  body   models.DeviceLogin  true "Device Login"
// @Success      200  {object}  models.Device
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Router       /api/devices/login [post]
func (api *API) LoginDevice(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "LoginDevice")
	defer span.End()

	var request models.DeviceLogin
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	deviceID := NormalizeDeviceID(request.DeviceID)
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, models.NewFieldNotPresentError("device_id"))
		return
	}

	var device models.Device
	db := api.db.WithContext(ctx)
	if res := db.First(&device, "device_id = ?", deviceID); res.Error != nil {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("device"))
		return
	}
	c.JSON(http.StatusOK, device)
}

// expandOwners attaches the owner identity to each device. A device whose
// owner was deleted keeps its uuid snapshot but gets no owner expansion.
func (api *API) expandOwners(ctx context.Context, devices []*models.Device) error {
	if len(devices) == 0 {
		return nil
	}
	ownerIds := make([]uuid.UUID, 0, len(devices))
	for _, d := range devices {
		ownerIds = append(ownerIds, d.OwnerID)
	}
	owners := make([]*models.User, 0)
	if res := api.db.WithContext(ctx).Where("id IN ?", ownerIds).Find(&owners); res.Error != nil {
		return res.Error
	}
	byId := make(map[uuid.UUID]*models.User, len(owners))
	for _, o := range owners {
		byId[o.ID] = o
	}
	for _, d := range devices {
		if owner, ok := byId[d.OwnerID]; ok {
			d.Owner = &models.DeviceOwner{FullName: owner.FullName, UUID: owner.UUID}
		}
	}
	return nil
}
