// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/database"
	"codeberg.org/oliverandrich/portfolio-admin/internal/repository"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/auth"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/email"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create a verified admin account or promote an existing one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Admin email address",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Admin password (prompted for if omitted)",
				Sources: cli.EnvVars("ADMIN_PASSWORD"),
			},
		},
		Action: createAdmin,
	}
}

func createAdmin(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	password := cmd.String("password")
	if password == "" {
		var err error
		password, err = readPassword(os.Stdin, cmd.Root().Writer)
		if err != nil {
			return err
		}
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	sender, err := email.NewSender(&cfg.SMTP, cfg.Auth.OTPTTL)
	if err != nil {
		return err
	}
	svc := auth.NewService(repository.New(db), sender, &cfg.Auth)

	user, err := svc.CreateAdmin(ctx, cmd.String("email"), password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "admin %s saved (id %s)\n", user.Email, user.ID)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd()) //nolint:gosec // file descriptors fit into int
	if term.IsTerminal(fd) {
		fmt.Fprint(out, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
