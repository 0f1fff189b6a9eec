// Command promote-admin grants or revokes the admin role of an existing user.
//
// Usage:
//
//	promote-admin [-revoke] <discordId>
//
// The user must have logged in once. DB_PATH and TOKEN_ENCRYPTION_KEY are read
// the same way the server reads them (.env first, then the environment).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/config"
	sqliteRepo "github.com/sakif/botpanel/internal/repository/sqlite"
	"github.com/sakif/botpanel/internal/secret"
)

func main() {
	revoke := flag.Bool("revoke", false, "remove the admin role instead of granting it")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-revoke] <discordId>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), !*revoke); err != nil {
		fmt.Fprintln(os.Stderr, "promote-admin:", err)
		os.Exit(1)
	}
}

func run(discordID string, admin bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sealer := secret.Plaintext()
	if cfg.TokenEncryptionKey != "" {
		if sealer, err = secret.New(cfg.TokenEncryptionKey); err != nil {
			return err
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath, sealer)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := db.SetAdminByDiscordID(ctx, discordID, admin)
	if errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("no user with Discord id %s; they must log in once first", discordID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s) isAdmin=%t\n", user.Username, user.DiscordID, user.IsAdmin)
	return nil
}
