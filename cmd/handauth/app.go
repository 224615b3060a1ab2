package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/certs"
	"github.com/harrylevesque/handauth/internal/client"
	"github.com/harrylevesque/handauth/internal/config"
	"github.com/harrylevesque/handauth/internal/logging"
	"github.com/harrylevesque/handauth/internal/store"
)

// app is what every subcommand needs, built from config and flags.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

// applyFlags overlays flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("server") {
		s, err := flags.GetString("server")
		if err != nil {
			return err
		}
		cfg.Server = s
	}
	if flags.Changed("still") {
		s, err := flags.GetString("still")
		if err != nil {
			return err
		}
		cfg.Camera.Still = s
	}
	if flags.Changed("device") {
		d, err := flags.GetInt("device")
		if err != nil {
			return err
		}
		cfg.Camera.Device = d
	}
	if flags.Changed("timeout") {
		d, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	return nil
}

func (a *app) Close() {
	if err := a.closeLog(); err != nil {
		a.logger.Warn("closing log file failed", "error", err)
	}
}

func (a *app) newCapture() (*capture.Capture, error) {
	devices, err := openDevice(a.cfg.Camera)
	if err != nil {
		return nil, err
	}
	return capture.New(devices, nil, nil,
		capture.WithConstraints(capture.Constraints{
			Width:      a.cfg.Camera.Width,
			Height:     a.cfg.Camera.Height,
			FacingMode: a.cfg.Camera.FacingMode,
		}),
		capture.WithQuality(a.cfg.Camera.Quality),
		capture.WithClearFrameOnStop(a.cfg.Camera.ClearFrameOnStop),
		capture.WithLogger(a.logger),
	), nil
}

// newClient builds the API client and restores a saved session, if any.
func (a *app) newClient() (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(a.cfg.Timeout),
		client.WithLogger(a.logger),
	}
	if a.cfg.CADir != "" {
		pool, err := certs.NewManager(a.cfg.CADir).Pool()
		if err != nil {
			return nil, fmt.Errorf("load ca dir: %w", err)
		}
		opts = append(opts, client.WithRootCAs(pool))
	}
	c, err := client.New(a.cfg.Server, opts...)
	if err != nil {
		return nil, err
	}
	st := a.sessionStore()
	if st == nil {
		return c, nil
	}
	sess, err := st.Load(a.cfg.Server)
	switch {
	case errors.Is(err, store.ErrNoSession):
	case err != nil:
		a.logger.Warn("saved session unreadable", "error", err)
	default:
		c.SetCookies(sess.HTTPCookies())
		a.logger.Debug("session restored", "username", sess.Username)
	}
	return c, nil
}

// sessionStore returns nil when persistence is off or no master key exists.
func (a *app) sessionStore() *store.SessionStore {
	if !a.cfg.Session.Persist {
		return nil
	}
	keyPath := a.cfg.Session.MasterKeyFile
	if keyPath == "" {
		keyPath = filepath.Join(config.XDGConfigDir(), store.MasterKeyFile)
	}
	st, err := store.Open(a.cfg.Session.Dir, keyPath)
	if err != nil {
		a.logger.Debug("session store disabled", "error", err)
		return nil
	}
	return st
}

func (a *app) saveSession(c *client.Client, username string) {
	st := a.sessionStore()
	if st == nil {
		return
	}
	path, err := st.Save(store.NewSession(a.cfg.Server, username, c.Cookies()))
	if err != nil {
		a.logger.Warn("session not saved", "error", err)
		return
	}
	a.logger.Debug("session saved", "path", path)
}

func (a *app) forgetSession() {
	if st := a.sessionStore(); st != nil {
		if err := st.Delete(a.cfg.Server); err != nil {
			a.logger.Warn("session not deleted", "error", err)
		}
	}
}
