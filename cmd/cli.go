package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
	"github.com/markjakearzadon/hostel-portal.git/internal/services"
	"github.com/markjakearzadon/hostel-portal.git/internal/session"
)

func (a *app) backend() *services.BackendClient {
	return services.NewBackendClient(a.cfg.BackendURL, a.cfg.BackendTimeout, a.logger.Named("backend"))
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			ctx := cmd.Context()
			resp, err := a.backend().Login(ctx, username, password)
			if err != nil {
				return err
			}
			if !resp.Success || resp.Token == "" || resp.Student == nil {
				if resp.Message != "" {
					return errors.New(resp.Message)
				}
				return errors.New("invalid username or password")
			}

			store := session.NewFileStore(a.cfg.SessionFile)
			if err := store.Save(ctx, models.Session{Token: resp.Token, Student: *resp.Student}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.Student.StudentName, resp.Student.StudentID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "portal username")
	cmd.Flags().StringVar(&password, "password", "", "portal password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.NewFileStore(a.cfg.SessionFile).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully")
			return nil
		},
	}
}

func newContactsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "Print the guardian contacts of the logged-in student",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printContacts(cmd.Context(), cmd)
		},
	}
}

func (a *app) printContacts(ctx context.Context, cmd *cobra.Command) error {
	store := session.NewFileStore(a.cfg.SessionFile)
	sess, err := session.Require(ctx, store)
	if err != nil {
		return fmt.Errorf("%w: run login first", err)
	}

	resp, err := a.backend().HostelContact(ctx, sess.Token, sess.Student.StudentID)
	if err := contactFailure(resp, err); err != nil {
		store.Clear(ctx)
		return fmt.Errorf("session ended: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Student)
}

var errContactUnavailable = errors.New("guardian contacts unavailable")

// contactFailure reports why resp carries no contact record, or nil when it does.
func contactFailure(resp *models.HostelContactResponse, err error) error {
	switch {
	case err != nil:
		return err
	case resp == nil || !resp.Success || resp.Student == nil:
		if resp != nil && resp.Message != "" {
			return errors.New(resp.Message)
		}
		return errContactUnavailable
	}
	return nil
}
