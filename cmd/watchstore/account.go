package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"watchstore/internal/apperr"
	"watchstore/internal/auth"
	"watchstore/internal/models"
	"watchstore/internal/services"
)

func loginCmd(get func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			sess, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil && !errors.Is(err, apperr.ErrMalformedToken) {
				return err
			}
			if err != nil {
				a.printf("warning: the store sent an unreadable token; some profile data may be missing\n")
			}
			a.printf("logged in as %s (%s)\n", sess.User.Name, sess.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(get func() *app) *cobra.Command {
	var in auth.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			sess, err := a.auth.Register(cmd.Context(), in)
			if err != nil && !errors.Is(err, apperr.ErrMalformedToken) {
				return err
			}
			a.printf("welcome, %s\n", sess.User.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "full name")
	f.StringVar(&in.Email, "email", "", "email")
	f.StringVar(&in.Password, "password", "", "password")
	f.StringVar(&in.ConfirmPassword, "confirm", "", "password again")
	f.StringVar(&in.CPF, "cpf", "", "CPF")
	f.StringVar(&in.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&in.Street, "street", "", "street")
	f.StringVar(&in.Number, "number", "", "street number")
	f.StringVar(&in.Block, "block", "", "block / complement")
	f.StringVar(&in.City, "city", "", "city")
	f.StringVar(&in.State, "state", "", "state")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("logged out\n")
			return nil
		},
	}
}

func whoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			u, ok := a.auth.CurrentUser(cmd.Context())
			if !ok {
				a.printf("not logged in\n")
				return nil
			}
			a.printf("%s <%s> id=%s role=%s\n", u.Name, u.Email, u.ID, u.Role)
			return nil
		},
	}
}

func profileCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your customer profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			c, err := a.profile.Current(cmd.Context())
			if err != nil {
				return err
			}
			printClient(a, c)
			return nil
		},
	}

	var name, phone, street, number, block, city, state string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; omitted flags stay as they are",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			var upd services.ProfileUpdate
			f := cmd.Flags()
			if f.Changed("name") {
				first, last := auth.SplitName(name)
				upd.Name, upd.FirstName, upd.LastName = &name, &first, &last
			}
			if f.Changed("phone") {
				upd.PhoneNumber = &phone
			}
			if f.Changed("street") || f.Changed("city") {
				upd.Address = &models.Address{Street: street, Number: number, Block: block, City: city, State: state}
			}
			c, err := a.profile.Update(cmd.Context(), upd)
			if err != nil {
				return err
			}
			printClient(a, c)
			return nil
		},
	}
	f := update.Flags()
	f.StringVar(&name, "name", "", "full name")
	f.StringVar(&phone, "phone", "", "phone number")
	f.StringVar(&street, "street", "", "street")
	f.StringVar(&number, "number", "", "street number")
	f.StringVar(&block, "block", "", "block / complement")
	f.StringVar(&city, "city", "", "city")
	f.StringVar(&state, "state", "", "state")
	cmd.AddCommand(update)
	return cmd
}

func clientsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List customer accounts (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			list, err := a.clients.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tACTIVE")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.ID, c.DisplayName(), c.Email, c.ActiveStatus)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show CLIENT_ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			c, err := a.clients.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printClient(a, c)
			return nil
		},
	})
	return cmd
}

func printClient(a *app, c models.Client) {
	a.printf("%s <%s>\n", c.DisplayName(), c.Email)
	if c.PhoneNumber != "" {
		a.printf("phone: %s\n", c.PhoneNumber)
	}
	if addr := c.Address; addr != nil {
		a.printf("address: %s\n", formatAddress(*addr))
	}
}

func formatAddress(addr models.Address) string {
	s := addr.Street
	if addr.Number != "" {
		s += ", " + addr.Number
	}
	if addr.Block != "" {
		s += " " + addr.Block
	}
	return fmt.Sprintf("%s - %s/%s", s, addr.City, addr.State)
}
