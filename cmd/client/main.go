package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"lanchat/internal/client"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lanchat",
		Usage: "terminal client for the lanchat TCP relay",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "127.0.0.1", Usage: "relay host", EnvVars: []string{"LANCHAT_HOST"}},
			&cli.IntFlag{Name: "port", Value: 9000, Usage: "relay socket port", EnvVars: []string{"LANCHAT_SOCKET_PORT"}},
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "skip the username prompt", EnvVars: []string{"LANCHAT_USERNAME"}},
		},
		Action: func(c *cli.Context) error {
			p := tea.NewProgram(client.NewModel(client.Options{
				Addr:     net.JoinHostPort(c.String("host"), strconv.Itoa(c.Int("port"))),
				Username: c.String("username"),
			}))
			_, err := p.Run()
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
