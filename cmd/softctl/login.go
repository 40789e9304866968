package main

import (
	"context"
	"fmt"
	"log"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/Deepesh976/ro-iot/internal/models"
	"github.com/Deepesh976/ro-iot/internal/session"
)

func createLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to the api server and store the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "phone-number",
				Usage:    "Phone number the account was registered with",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Account password, prompted for when not given",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			password := command.String("password")
			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return err
				}
				password = string(raw)
			}

			client := newAPIClient(serviceURL(command), "")
			var login models.LoginResponse
			err := client.Post("/api/auth/login", models.LoginRequest{
				PhoneNumber: command.String("phone-number"),
				Password:    password,
			}, &login)
			if err != nil {
				log.Fatalf("login failed: %v", err)
			}

			err = sessionStore().Save(session.Session{
				Token:     login.Token,
				UserID:    login.User.ID,
				Phone:     login.User.PhoneNumber,
				ExpiresAt: login.ExpiresAt,
			})
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s, session valid until %s\n", login.User.FullName, login.ExpiresAt.Local())
			return nil
		},
	}
}

func createLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Discard the stored session token",
		Action: func(ctx context.Context, command *cli.Command) error {
			if err := session.Logout(sessionStore()); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func createStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the stored session state",
		Action: func(ctx context.Context, command *cli.Command) error {
			sess, state, err := session.Guard(sessionStore(), timeNow())
			if err != nil {
				return err
			}
			switch state {
			case session.Authenticated:
				fmt.Printf("%s as %s, valid until %s\n", state, sess.Phone, sess.ExpiresAt.Local())
			default:
				fmt.Println(state)
			}
			return nil
		},
	}
}
