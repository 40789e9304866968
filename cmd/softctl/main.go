package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"reflect"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/Deepesh976/ro-iot/internal/session"
)

const (
	encodeJsonRaw    = "json-raw"
	encodeJsonPretty = "json"
	encodeNoHeader   = "no-header"
	encodeColumn     = "column"
)

// Version is set using ldflags at build time. See Makefile for details.
var Version = "dev"

// DefaultServiceURL is optionally set at build time using ldflags
var DefaultServiceURL = "http://localhost:8080"

func main() {
	// Override usage to capitalize "Show"
	cli.HelpFlag.(*cli.BoolFlag).Usage = "Show help"
	app := &cli.Command{
		Name:  "softctl",
		Usage: "controls the softener fleet api",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "service-url",
				Value:   DefaultServiceURL,
				Usage:   "Api server URL",
				Sources: cli.EnvVars("SOFTCTL_SERVICE_URL"),
			},
			&cli.StringFlag{
				Name:     "output",
				Value:    encodeColumn,
				Required: false,
				Usage:    "Output format: json, json-raw, no-header, column (default columns)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Get the version of softctl",
				Action: func(ctx context.Context, command *cli.Command) error {
					fmt.Printf("version: %s\n", Version)
					return nil
				},
			},
			createLoginCommand(),
			createLogoutCommand(),
			createStatusCommand(),
			createUserSubCommand(),
			createDeviceCommand(),
		},
	}

	sort.Slice(app.Commands, func(i, j int) bool {
		return app.Commands[i].Name < app.Commands[j].Name
	})

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serviceURL(command *cli.Command) string {
	urlValue := command.String("service-url")
	apiURL, err := url.Parse(urlValue)
	if err != nil {
		log.Fatalf("invalid '--service-url=%s' flag provided. error: %v", urlValue, err)
	}
	if apiURL.Scheme != "http" && apiURL.Scheme != "https" {
		log.Fatalf("invalid '--service-url=%s' flag provided. error: an 'http://' or 'https://' URL scheme is required", urlValue)
	}
	return apiURL.String()
}

func sessionStore() session.Store {
	path, err := session.DefaultPath()
	if err != nil {
		log.Fatal(err)
	}
	return session.NewFileStore(path)
}

// mustCreateClient refuses to build a client unless a live login is on disk.
// An expired session is wiped here so the next status check starts clean.
func mustCreateClient(command *cli.Command) *apiClient {
	store := sessionStore()
	sess, state, err := session.Guard(store, timeNow())
	if err != nil {
		log.Fatal(err)
	}
	switch state {
	case session.Expired:
		log.Fatal("your session has expired, please run 'softctl login' again")
	case session.Unauthenticated:
		log.Fatal("not logged in, please run 'softctl login' first")
	}
	return newAPIClient(serviceURL(command), sess.Token)
}

type TableField struct {
	Header    string
	Field     string
	Formatter func(item interface{}) string
}

func showOutput(command *cli.Command, fields []TableField, result any) {
	output := command.String("output")
	switch output {
	case encodeJsonPretty:
		bytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("failed to encode the ctl output: %v", err)
		}
		fmt.Println(string(bytes))

	case encodeJsonRaw:
		bytes, err := json.Marshal(result)
		if err != nil {
			log.Fatalf("failed to encode the ctl output: %v", err)
		}
		fmt.Println(string(bytes))

	case encodeColumn, encodeNoHeader:

		table := tablewriter.NewWriter(os.Stdout)
		table.SetBorders(tablewriter.Border{
			Left:   true,
			Right:  true,
			Top:    false,
			Bottom: false,
		})
		table.SetAutoWrapText(false)

		if output != encodeNoHeader {
			var headers []string
			for _, field := range fields {
				headers = append(headers, field.Header)
			}
			table.SetHeader(headers)
		}

		itemsValue := reflect.ValueOf(result)
		// if the itemsValue is not a slice, lets turn it into one.
		if itemsValue.Type().Kind() != reflect.Slice {
			itemsValue = reflect.Append(
				reflect.MakeSlice(reflect.SliceOf(itemsValue.Type()), 0, 1),
				reflect.ValueOf(result),
			)
		}
		for i := 0; i < itemsValue.Len(); i++ {
			itemValue := itemsValue.Index(i)
			var line []string
			for _, field := range fields {
				if field.Formatter != nil {
					line = append(line, field.Formatter(itemValue.Interface()))
				} else if field.Field != "" {
					for itemValue.Type().Kind() == reflect.Pointer {
						itemValue = itemValue.Elem()
					}
					line = append(line, fmt.Sprintf("%v", itemValue.FieldByName(field.Field).Interface()))
				}
			}
			table.Append(line)
		}
		table.Render()

	default:
		log.Fatalf("unknown output option: %s", output)
	}
}
