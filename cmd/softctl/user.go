package main

import (
	"context"
	"fmt"
	"log"

	"github.com/urfave/cli/v3"

	"github.com/Deepesh976/ro-iot/internal/models"
)

func userTableFields() []TableField {
	var fields []TableField
	fields = append(fields, TableField{Header: "USER ID", Field: "ID"})
	fields = append(fields, TableField{Header: "FULL NAME", Field: "FullName"})
	fields = append(fields, TableField{Header: "PHONE NUMBER", Field: "PhoneNumber"})
	fields = append(fields, TableField{Header: "LOCATION", Field: "Location"})
	return fields
}

func createUserSubCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Commands relating to customer accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all users",
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var users []models.User
					if err := c.Get("/api/users", &users); err != nil {
						log.Fatal(err)
					}
					showOutput(command, userTableFields(), users)
					return nil
				},
			},
			{
				Name:  "get-current",
				Usage: "Get the logged in user",
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var user models.User
					if err := c.Get("/api/users/me", &user); err != nil {
						log.Fatal(err)
					}
					showOutput(command, userTableFields(), user)
					return nil
				},
			},
			{
				Name:  "register",
				Usage: "Register a new user account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "full-name", Required: true},
					&cli.StringFlag{Name: "phone-number", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "location", Required: true},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					client := newAPIClient(serviceURL(command), "")
					var registered models.RegisterResponse
					err := client.Post("/api/auth/register", models.AddUser{
						FullName:    command.String("full-name"),
						PhoneNumber: command.String("phone-number"),
						Password:    command.String("password"),
						Location:    command.String("location"),
					}, &registered)
					if err != nil {
						log.Fatalf("user registration failed: %v", err)
					}
					fmt.Printf("successfully registered, account uuid: %s\n", registered.UUID)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "full-name"},
					&cli.StringFlag{Name: "phone-number"},
					&cli.StringFlag{Name: "password"},
					&cli.StringFlag{Name: "location"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var user models.User
					update := models.UpdateUser{
						FullName:    command.String("full-name"),
						PhoneNumber: command.String("phone-number"),
						Password:    command.String("password"),
						Location:    command.String("location"),
					}
					err := c.Patch(fmt.Sprintf("/api/users/%s", command.String("user-id")), update, &user)
					if err != nil {
						log.Fatalf("user update failed: %v", err)
					}
					showOutput(command, userTableFields(), user)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Required: true},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					c := mustCreateClient(command)
					var user models.User
					err := c.Delete(fmt.Sprintf("/api/users/%s", command.String("user-id")), &user)
					if err != nil {
						log.Fatalf("user delete failed: %v", err)
					}
					showOutput(command, userTableFields(), user)
					encodeOut := command.String("output")
					if encodeOut == encodeColumn || encodeOut == encodeNoHeader {
						fmt.Println("\nsuccessfully deleted")
					}
					return nil
				},
			},
		},
	}
}
