package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"episodic/internal/auth"
	"episodic/internal/engine"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the catalog and report the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, nil, func(eng *engine.Engine) error {
				state, err := eng.LoginState(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				switch {
				case state == auth.LoggedIn:
					fmt.Fprintln(out, renderStatusLine("Login", statusOK, "logged in as "+cfg.Catalog.Username, colorize))
				case !cfg.HasCredentials():
					fmt.Fprintln(out, renderStatusLine("Login", statusWarn, "no credentials configured; browsing anonymously", colorize))
				default:
					fmt.Fprintln(out, renderStatusLine("Login", statusError, state.String(), colorize))
					return auth.ErrLoginFailed
				}
				return nil
			})
		},
	}
}
