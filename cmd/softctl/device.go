package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/Deepesh976/ro-iot/internal/models"
)

func deviceTableFields() []TableField {
	var fields []TableField
	fields = append(fields, TableField{Header: "DEVICE ID", Field: "DeviceID"})
	fields = append(fields, TableField{Header: "MODEL", Field: "Model"})
	fields = append(fields, TableField{Header: "STATUS", Field: "Status"})
	fields = append(fields, TableField{Header: "FIRMWARE", Field: "FirmwareVersion"})
	fields = append(fields, TableField{Header: "OWNER", Formatter: func(item interface{}) string {
		device := item.(models.Device)
		if device.Owner == nil {
			return device.OwnerUUID
		}
		return fmt.Sprintf("%s (%s)", device.Owner.FullName, device.Owner.UUID)
	}})
	fields = append(fields, TableField{Header: "LAST SEEN", Formatter: func(item interface{}) string {
		return item.(models.Device).LastSeenAt.Local().Format("2006-01-02 15:04:05")
	}})
	return fields
}

func ownerIDArg(command *cli.Command) uuid.UUID {
	raw := command.String("owner-id")
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Fatalf("invalid '--owner-id=%s' flag provided. error: %v", raw, err)
	}
	return id
}

func createDeviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "Commands relating to softener units",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all devices",
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var devices []models.Device
					if err := c.Get("/api/devices", &devices); err != nil {
						log.Fatal(err)
					}
					showOutput(command, deviceTableFields(), devices)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Get a device",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "device-id", Required: true, Usage: "Record id of the device"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var device models.Device
					err := c.Get(fmt.Sprintf("/api/devices/%s", command.String("device-id")), &device)
					if err != nil {
						log.Fatal(err)
					}
					showOutput(command, deviceTableFields(), device)
					return nil
				},
			},
			{
				Name:  "register",
				Usage: "Register a new device",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "serial", Required: true, Usage: "Serial printed on the unit"},
					&cli.StringFlag{Name: "model", Required: true},
					&cli.StringFlag{Name: "owner-id", Required: true, Usage: "Record id of the owning user"},
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "latitude"},
					&cli.StringFlag{Name: "longitude"},
					&cli.StringFlag{Name: "status"},
					&cli.StringFlag{Name: "firmware-version"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var device models.Device
					err := c.Post("/api/devices", models.AddDevice{
						DeviceID:        command.String("serial"),
						Model:           command.String("model"),
						OwnerID:         ownerIDArg(command),
						Address:         command.String("address"),
						Latitude:        command.String("latitude"),
						Longitude:       command.String("longitude"),
						Status:          command.String("status"),
						FirmwareVersion: command.String("firmware-version"),
					}, &device)
					if err != nil {
						log.Fatalf("device register failed: %v", err)
					}
					showOutput(command, deviceTableFields(), device)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update a device",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "device-id", Required: true, Usage: "Record id of the device"},
					&cli.StringFlag{Name: "serial", Required: true},
					&cli.StringFlag{Name: "model", Required: true},
					&cli.StringFlag{Name: "owner-id", Required: true},
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "latitude"},
					&cli.StringFlag{Name: "longitude"},
					&cli.StringFlag{Name: "status"},
					&cli.StringFlag{Name: "firmware-version"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var device models.Device
					err := c.Patch(fmt.Sprintf("/api/devices/%s", command.String("device-id")), models.UpdateDevice{
						DeviceID:        command.String("serial"),
						Model:           command.String("model"),
						OwnerID:         ownerIDArg(command),
						Address:         command.String("address"),
						Latitude:        command.String("latitude"),
						Longitude:       command.String("longitude"),
						Status:          command.String("status"),
						FirmwareVersion: command.String("firmware-version"),
					}, &device)
					if err != nil {
						log.Fatalf("device update failed: %v", err)
					}
					showOutput(command, deviceTableFields(), device)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a device",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "device-id", Required: true, Usage: "Record id of the device"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var device models.Device
					err := c.Delete(fmt.Sprintf("/api/devices/%s", command.String("device-id")), &device)
					if err != nil {
						log.Fatalf("device delete failed: %v", err)
					}
					showOutput(command, deviceTableFields(), device)
					encodeOut := command.String("output")
					if encodeOut == encodeColumn || encodeOut == encodeNoHeader {
						fmt.Println("\nsuccessfully deleted")
					}
					return nil
				},
			},
			{
				Name:  "lookup",
				Usage: "Look up a device by its serial",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "serial", Required: true},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := newAPIClient(serviceURL(command), "")
					var device models.Device
					err := c.Post("/api/devices/login", models.DeviceLogin{
						DeviceID: command.String("serial"),
					}, &device)
					if err != nil {
						log.Fatal(err)
					}
					showOutput(command, deviceTableFields(), device)
					return nil
				},
			},
		},
	}
}
