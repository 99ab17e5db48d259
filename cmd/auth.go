package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunesync/internal/server"
	"github.com/desertthunder/tunesync/internal/services"
	"github.com/desertthunder/tunesync/internal/shared"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth runs the OAuth code flow through a local callback server and stores the token.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", r.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.config.Server.Addr(), err)
	}

	state := shared.GenerateID()
	authURL := svc.GetAuthURL(state)

	r.writePlain("Opening browser for Spotify authorization...\n")
	r.writePlain("If the browser does not open, visit:\n%s\n\n", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	r.logger.Info("waiting for authorization callback", "addr", listener.Addr().String())
	token, err := server.AwaitToken(ctx, listener, server.NewOAuthHandler(svc.Exchange, state), authTimeout, r.logger)
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	svc.SetToken(ctx, token)
	if user, err := svc.UserProfile(ctx); err == nil {
		r.logger.Info("authenticated", "user", user.DisplayName)
	} else {
		r.logger.Warn("token saved but profile lookup failed", "error", err)
	}

	return r.writePlain("✓ Spotify connected, token saved to %s\n", r.config.TokenPath())
}
