package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slackr-server/client"
	"slackr-server/models"
	"slackr-server/toggle"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "auth token (overrides client.token)",
		EnvVars: []string{"SLACKR_TOKEN"},
	}
	messageFlag = &cli.StringFlag{
		Name:     "message-id",
		Aliases:  []string{"m"},
		Usage:    "message to react to",
		Required: true,
	}
	reactFlag = &cli.IntFlag{
		Name:     "react-id",
		Aliases:  []string{"r"},
		Usage:    "react kind",
		Required: true,
	}
	channelFlag = &cli.IntFlag{
		Name:     "channel-id",
		Usage:    "channel holding the message",
		Required: true,
	}
)

func newClient(c *cli.Context) *client.Client {
	cfg := appConfig(c)
	return client.New(cfg.Client.BaseURL, client.WithTimeout(cfg.Client.Timeout))
}

// authProvider resolves the token lazily so commands fail only when they
// actually need it.
func authProvider(c *cli.Context) toggle.AuthProvider {
	return toggle.AuthFunc(func(context.Context) (string, error) {
		if t := c.String("token"); t != "" {
			return t, nil
		}
		if t := appConfig(c).Client.Token; t != "" {
			return t, nil
		}
		return "", fmt.Errorf("no token: pass --token or set SLACKR_CLIENT_TOKEN")
	})
}

func commandContext(c *cli.Context) context.Context {
	return log.Logger.WithContext(c.Context)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and print an auth token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, EnvVars: []string{"SLACKR_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			resp, err := newClient(c).Login(commandContext(c), c.String("username"), c.String("password"))
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

// reactCommand sends a single react or unreact request regardless of the
// current state.
func reactCommand(name, usage string, remove bool) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{tokenFlag, messageFlag, reactFlag},
		Action: func(c *cli.Context) error {
			messageID, err := toggle.ParseMessageID(c.String("message-id"))
			if err != nil {
				return err
			}
			tg := toggle.New(toggle.Kind(c.Int("react-id")), authProvider(c), newClient(c))
			return tg.Mutate(commandContext(c), messageID, remove)
		},
	}
}

// toggleCommand flips the current user's reaction the way the web client's
// toggle button does, then prints the refreshed view.
func toggleCommand() *cli.Command {
	return &cli.Command{
		Name:  "toggle",
		Usage: "Flip your reaction on a message and print the result",
		Flags: []cli.Flag{tokenFlag, messageFlag, reactFlag},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			messageID, err := toggle.ParseMessageID(c.String("message-id"))
			if err != nil {
				return err
			}
			auth := authProvider(c)
			token, err := auth.Token(ctx)
			if err != nil {
				return err
			}

			api := newClient(c)
			msg, err := api.GetMessage(ctx, token, messageID)
			if err != nil {
				return err
			}
			reacts := msg.Reacts

			var refreshErr error
			tg := toggle.New(toggle.Kind(c.Int("react-id")), auth, api,
				toggle.WithRefresh(func() {
					fresh, err := api.GetMessage(ctx, token, messageID)
					if err != nil {
						refreshErr = err
						return
					}
					reacts = fresh.Reacts
				}),
			)

			if err := tg.Click(ctx, messageID, reacts).Wait(); err != nil {
				return err
			}
			if refreshErr != nil {
				return fmt.Errorf("refresh after toggle: %w", refreshErr)
			}
			return printJSON(tg.View(reacts))
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the reaction toggles of a message",
		Flags: []cli.Flag{tokenFlag, messageFlag},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			messageID, err := toggle.ParseMessageID(c.String("message-id"))
			if err != nil {
				return err
			}
			token, err := authProvider(c).Token(ctx)
			if err != nil {
				return err
			}

			msg, err := newClient(c).GetMessage(ctx, token, messageID)
			if err != nil {
				return err
			}
			return printJSON(views(msg.Reacts))
		},
	}
}

func channelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "List your channels",
		Flags: []cli.Flag{
			tokenFlag,
			&cli.BoolFlag{Name: "all", Usage: "list every channel, not only yours"},
		},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			token, err := authProvider(c).Token(ctx)
			if err != nil {
				return err
			}

			api := newClient(c)
			list := api.ListChannels
			if c.Bool("all") {
				list = api.ListAllChannels
			}
			channels, err := list(ctx, token)
			if err != nil {
				return err
			}
			return printJSON(channels)
		},
	}
}

type messageView struct {
	MessageID int           `json:"message_id"`
	Message   string        `json:"message"`
	IsPinned  bool          `json:"is_pinned"`
	Reacts    []toggle.View `json:"reacts"`
}

// messagesCommand prints one page of a channel with each message's toggles.
func messagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "messages",
		Usage: "Print a page of channel messages with their reactions",
		Flags: []cli.Flag{
			tokenFlag,
			channelFlag,
			&cli.IntFlag{Name: "start", Usage: "index of the first message, newest first"},
		},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			token, err := authProvider(c).Token(ctx)
			if err != nil {
				return err
			}

			page, err := newClient(c).ChannelMessages(ctx, token, c.Int("channel-id"), c.Int("start"))
			if err != nil {
				return err
			}
			out := make([]messageView, 0, len(page.Messages))
			for _, m := range page.Messages {
				out = append(out, messageView{
					MessageID: m.MessageID,
					Message:   m.Message,
					IsPinned:  m.IsPinned,
					Reacts:    views(m.Reacts),
				})
			}
			return printJSON(map[string]interface{}{"messages": out, "start": page.Start, "end": page.End})
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Revoke an auth token",
		Flags: []cli.Flag{tokenFlag},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			token, err := authProvider(c).Token(ctx)
			if err != nil {
				return err
			}
			ok, err := newClient(c).Logout(ctx, token)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("token was already invalid")
			}
			return nil
		},
	}
}

func views(reacts models.ReactionList) []toggle.View {
	out := make([]toggle.View, 0, len(reacts))
	for _, r := range reacts {
		kind := toggle.Kind(r.ReactID)
		out = append(out, toggle.DefaultStyles.View(kind, toggle.Derive(reacts, kind)))
	}
	return out
}
